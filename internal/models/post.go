package models

// Media is an attachment referenced by posts, keyed by its media key.
type Media struct {
	MediaKey   string
	Type       string
	Properties Object
}

// Post is a single timeline item.
type Post struct {
	ID         string
	AuthorID   string
	Text       string
	CreatedAt  string
	Properties Object
}
