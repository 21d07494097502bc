package models

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a human-readable outcome of an operation, meant for display.
// It is independent of the error kind returned to the caller.
type Notice struct {
	Level NoticeLevel
	Title string
	Body  string
}
