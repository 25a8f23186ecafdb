package services

import "errors"

// Workbook service errors
var (
	ErrNoWorkbook      = errors.New("no workbook loaded")
	ErrUnknownRule     = errors.New("unknown rule")
	ErrPanelNotFound   = errors.New("panel not found")
	ErrInvalidExport   = errors.New("invalid export kind")
	ErrInvalidInput    = errors.New("invalid input")
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFileType = errors.New("invalid file type")
)
