package storage

import "github.com/gabriel-vasile/mimetype"

func contentType(data []byte) string {
	return mimetype.Detect(data).String()
}
