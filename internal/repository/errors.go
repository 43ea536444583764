package repository

import "errors"

var (
	// ErrInvalidSlideURL indicates an invalid slide URL
	ErrInvalidSlideURL = errors.New("invalid slide URL")

	// ErrSlideNotFound indicates the slide was not found
	ErrSlideNotFound = errors.New("slide not found")
)
