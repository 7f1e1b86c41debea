package notion

import (
	"strconv"
	"strings"
)

// Block is one content block of a page body. Only the payload matching
// Type is set.
type Block struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
	Archived    bool   `json:"archived"`

	Paragraph        *TextBlock  `json:"paragraph,omitempty"`
	Heading1         *TextBlock  `json:"heading_1,omitempty"`
	Heading2         *TextBlock  `json:"heading_2,omitempty"`
	Heading3         *TextBlock  `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock  `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock  `json:"numbered_list_item,omitempty"`
	Quote            *TextBlock  `json:"quote,omitempty"`
	Callout          *TextBlock  `json:"callout,omitempty"`
	Toggle           *TextBlock  `json:"toggle,omitempty"`
	ToDo             *ToDoBlock  `json:"to_do,omitempty"`
	Code             *CodeBlock  `json:"code,omitempty"`
	Image            *MediaBlock `json:"image,omitempty"`
	Video            *MediaBlock `json:"video,omitempty"`
	Bookmark         *LinkBlock  `json:"bookmark,omitempty"`
	Embed            *LinkBlock  `json:"embed,omitempty"`
	Divider          *struct{}   `json:"divider,omitempty"`

	// Children is filled by Client.BlockChildren, not by the API.
	Children []Block `json:"-"`
}

type TextBlock struct {
	RichText []RichText `json:"rich_text"`
}

type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

// MediaBlock is an image or video; the file may be hosted or external.
type MediaBlock struct {
	File
	Caption []RichText `json:"caption"`
}

type LinkBlock struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption"`
}

// Markdown renders blocks to Markdown. Unsupported block types are
// skipped.
func Markdown(blocks []Block) string {
	var b strings.Builder
	writeBlocks(&b, blocks, 0)
	return strings.TrimSpace(b.String())
}

func writeBlocks(b *strings.Builder, blocks []Block, depth int) {
	indent := strings.Repeat("  ", depth)
	number := 0
	for i, blk := range blocks {
		if blk.Archived {
			continue
		}
		if blk.Type == "numbered_list_item" {
			number++
		} else {
			number = 0
		}

		switch blk.Type {
		case "paragraph":
			if blk.Paragraph != nil {
				b.WriteString(indent + inline(blk.Paragraph.RichText) + "\n\n")
			}
		case "heading_1":
			heading(b, "# ", blk.Heading1)
		case "heading_2":
			heading(b, "## ", blk.Heading2)
		case "heading_3":
			heading(b, "### ", blk.Heading3)
		case "bulleted_list_item":
			if blk.BulletedListItem != nil {
				b.WriteString(indent + "- " + inline(blk.BulletedListItem.RichText) + "\n")
				writeBlocks(b, blk.Children, depth+1)
				endList(b, blocks, i)
			}
			continue
		case "numbered_list_item":
			if blk.NumberedListItem != nil {
				b.WriteString(indent + strconv.Itoa(number) + ". " + inline(blk.NumberedListItem.RichText) + "\n")
				writeBlocks(b, blk.Children, depth+1)
				endList(b, blocks, i)
			}
			continue
		case "to_do":
			if blk.ToDo != nil {
				mark := "[ ]"
				if blk.ToDo.Checked {
					mark = "[x]"
				}
				b.WriteString(indent + "- " + mark + " " + inline(blk.ToDo.RichText) + "\n")
				endList(b, blocks, i)
			}
			continue
		case "quote", "callout":
			tb := blk.Quote
			if blk.Type == "callout" {
				tb = blk.Callout
			}
			if tb != nil {
				for _, line := range strings.Split(inline(tb.RichText), "\n") {
					b.WriteString(indent + "> " + line + "\n")
				}
				b.WriteString("\n")
			}
		case "toggle":
			if blk.Toggle != nil {
				b.WriteString(indent + "**" + inline(blk.Toggle.RichText) + "**\n\n")
			}
		case "code":
			if blk.Code != nil {
				lang := blk.Code.Language
				if lang == "plain text" {
					lang = ""
				}
				b.WriteString("```" + lang + "\n" + PlainText(blk.Code.RichText) + "\n```\n\n")
			}
		case "image":
			if blk.Image != nil {
				if u := blk.Image.URL(); u != "" {
					b.WriteString(indent + "![" + escapeBrackets(PlainText(blk.Image.Caption)) + "](" + u + ")\n\n")
				}
			}
		case "video":
			if blk.Video != nil {
				if u := blk.Video.URL(); u != "" {
					b.WriteString(indent + "[" + linkLabel(blk.Video.Caption, u) + "](" + u + ")\n\n")
				}
			}
		case "bookmark", "embed":
			lb := blk.Bookmark
			if blk.Type == "embed" {
				lb = blk.Embed
			}
			if lb != nil && lb.URL != "" {
				b.WriteString(indent + "[" + linkLabel(lb.Caption, lb.URL) + "](" + lb.URL + ")\n\n")
			}
		case "divider":
			b.WriteString("---\n\n")
		}

		if len(blk.Children) > 0 {
			writeBlocks(b, blk.Children, depth+1)
		}
	}
}

func heading(b *strings.Builder, prefix string, tb *TextBlock) {
	if tb == nil {
		return
	}
	b.WriteString(prefix + inline(tb.RichText) + "\n\n")
}

// endList adds the blank line that closes a list once the next sibling is
// not a list item of the same run.
func endList(b *strings.Builder, siblings []Block, i int) {
	if i+1 < len(siblings) && siblings[i+1].Type == siblings[i].Type {
		return
	}
	b.WriteString("\n")
}

// inline renders rich text runs with Markdown emphasis and links.
func inline(runs []RichText) string {
	var b strings.Builder
	for _, r := range runs {
		text := r.PlainText
		if text == "" {
			continue
		}
		if a := r.Annotations; a != nil {
			switch {
			case a.Code:
				text = "`" + text + "`"
			default:
				if a.Bold {
					text = "**" + text + "**"
				}
				if a.Italic {
					text = "_" + text + "_"
				}
				if a.Strikethrough {
					text = "~~" + text + "~~"
				}
			}
		}
		if r.Href != nil && *r.Href != "" {
			text = "[" + text + "](" + *r.Href + ")"
		}
		b.WriteString(text)
	}
	return b.String()
}

func linkLabel(caption []RichText, fallback string) string {
	if s := strings.TrimSpace(PlainText(caption)); s != "" {
		return escapeBrackets(s)
	}
	return fallback
}

func escapeBrackets(s string) string {
	return strings.NewReplacer("[", "\\[", "]", "\\]").Replace(s)
}
