package audit

// Event is the recorded outcome of one guarded access attempt.
type Event string

const (
	EventBlocked Event = "BLOCKED"
	EventAllowed Event = "ALLOWED"
)

// Entry is one line in the JSONL audit log. All fields are scalars so
// json.Marshal produces a stable, independently parseable record.
type Entry struct {
	Timestamp  string `json:"ts"`
	FilePath   string `json:"file_path"`
	Tool       string `json:"tool"`
	WorkingDir string `json:"working_dir"`
	Event      Event  `json:"event"`
	Reason     string `json:"reason,omitempty"`
}
