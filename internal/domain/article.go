package domain

// Article is one scraped source article. It is produced by the scraping
// collaborator before a sync starts and is read-only for the whole batch.
type Article struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	PublishTime string `json:"publishTime,omitempty"`
	Content     string `json:"content"` // raw HTML body
	SourceURL   string `json:"sourceUrl"`
}
