package queue

const TypeReindexUser = "transactions:reindex"

// ReindexPayload points at the user's stored upload; the worker replays it
// in replace mode.
type ReindexPayload struct {
	UserID   int64  `json:"user_id"`
	FilePath string `json:"file_path"`
}
