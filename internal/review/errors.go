package review

import "errors"

var (
	// ErrInvalidSeverity is returned for severity values outside high/medium/low.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidStatus is returned for status values outside the lifecycle enum.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNoSuchSection is returned when an issue references a section index
	// that does not exist.
	ErrNoSuchSection = errors.New("no such section")

	// ErrNoSuchIssue is returned when an issue id is unknown.
	ErrNoSuchIssue = errors.New("no such issue")

	// ErrUnsupportedFile is returned for document extensions other than
	// .docx, .txt and .md.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrUnreadableFile is returned when a document decodes to no text.
	ErrUnreadableFile = errors.New("unable to read document text")
)
