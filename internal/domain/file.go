package domain

import "context"

// FileRepository abstracts the object store backing document uploads
type FileRepository interface {
	// Upload saves a file and returns its URL
	Upload(ctx context.Context, file []byte, filename string, contentType string) (string, error)
	// Exists reports whether a previously returned URL still resolves to
	// a stored object. URLs this store never issued are simply absent.
	Exists(ctx context.Context, url string) (bool, error)
}
