package lifecycle

// TrackedFile is a source file known to the language server, together with
// the name of the buf module that owns it.
type TrackedFile struct {
	Path   string `json:"path"`
	Module string `json:"module"`
}
