package content

import "github.com/eringen/folio/notion"

// PostSchema lists the candidate property names for every post field, in
// precedence order.
type PostSchema struct {
	Slug        notion.Field `yaml:"slug"`
	Title       notion.Field `yaml:"title"`
	Content     notion.Field `yaml:"content"`
	Excerpt     notion.Field `yaml:"excerpt"`
	Date        notion.Field `yaml:"date"`
	Category    notion.Field `yaml:"category"`
	ReadTime    notion.Field `yaml:"read_time"`
	Image       notion.Field `yaml:"image"`
	Featured    notion.Field `yaml:"featured"`
	Author      notion.Field `yaml:"author"`
	AuthorTitle notion.Field `yaml:"author_title"`
	Published   notion.Field `yaml:"published"`
	Status      notion.Field `yaml:"status"`
}

// GallerySchema lists the candidate property names for gallery fields.
type GallerySchema struct {
	Name        notion.Field `yaml:"name"`
	Alt         notion.Field `yaml:"alt"`
	Src         notion.Field `yaml:"src"`
	SrcFull     notion.Field `yaml:"src_full"`
	SrcOriginal notion.Field `yaml:"src_original"`
	Width       notion.Field `yaml:"width"`
	Height      notion.Field `yaml:"height"`
	Category    notion.Field `yaml:"category"`
	Selected    notion.Field `yaml:"selected"`
	Place       notion.Field `yaml:"place"`
	Date        notion.Field `yaml:"date"`
}

// Schema maps logical fields to workspace property names.
type Schema struct {
	Post    PostSchema    `yaml:"post"`
	Gallery GallerySchema `yaml:"gallery"`
}

// DefaultSchema returns the property names used by the site's workspace.
func DefaultSchema() Schema {
	return Schema{
		Post: PostSchema{
			Slug:        notion.Field{"Slug", "slug", "URL"},
			Title:       notion.Field{"Title", "Name", "title"},
			Content:     notion.Field{"Content", "Content ", "Body", "Description", "Text"},
			Excerpt:     notion.Field{"Excerpt", "excerpt", "Summary"},
			Date:        notion.Field{"Date", "Published Date"},
			Category:    notion.Field{"Category", "category"},
			ReadTime:    notion.Field{"ReadTime"},
			Image:       notion.Field{"Image", "Cover"},
			Featured:    notion.Field{"Featured"},
			Author:      notion.Field{"Author"},
			AuthorTitle: notion.Field{"AuthorTitle"},
			Published:   notion.Field{"Published"},
			Status:      notion.Field{"Status"},
		},
		Gallery: GallerySchema{
			Name:        notion.Field{"Name", "Title"},
			Alt:         notion.Field{"Alt", "Description"},
			Src:         notion.Field{"Image", "Src", "URL"},
			SrcFull:     notion.Field{"Full", "SrcFull"},
			SrcOriginal: notion.Field{"Original", "SrcOriginal"},
			Width:       notion.Field{"Width"},
			Height:      notion.Field{"Height"},
			Category:    notion.Field{"Category"},
			Selected:    notion.Field{"Selected", "selected", "Featured"},
			Place:       notion.Field{"Location", "Place"},
			Date:        notion.Field{"Date", "Created"},
		},
	}
}

// Merge fills every empty field of s from def.
func (s Schema) Merge(def Schema) Schema {
	pick := func(a, b notion.Field) notion.Field {
		if len(a) > 0 {
			return a
		}
		return b
	}
	p, d := s.Post, def.Post
	s.Post = PostSchema{
		Slug:        pick(p.Slug, d.Slug),
		Title:       pick(p.Title, d.Title),
		Content:     pick(p.Content, d.Content),
		Excerpt:     pick(p.Excerpt, d.Excerpt),
		Date:        pick(p.Date, d.Date),
		Category:    pick(p.Category, d.Category),
		ReadTime:    pick(p.ReadTime, d.ReadTime),
		Image:       pick(p.Image, d.Image),
		Featured:    pick(p.Featured, d.Featured),
		Author:      pick(p.Author, d.Author),
		AuthorTitle: pick(p.AuthorTitle, d.AuthorTitle),
		Published:   pick(p.Published, d.Published),
		Status:      pick(p.Status, d.Status),
	}
	g, dg := s.Gallery, def.Gallery
	s.Gallery = GallerySchema{
		Name:        pick(g.Name, dg.Name),
		Alt:         pick(g.Alt, dg.Alt),
		Src:         pick(g.Src, dg.Src),
		SrcFull:     pick(g.SrcFull, dg.SrcFull),
		SrcOriginal: pick(g.SrcOriginal, dg.SrcOriginal),
		Width:       pick(g.Width, dg.Width),
		Height:      pick(g.Height, dg.Height),
		Category:    pick(g.Category, dg.Category),
		Selected:    pick(g.Selected, dg.Selected),
		Place:       pick(g.Place, dg.Place),
		Date:        pick(g.Date, dg.Date),
	}
	return s
}
