package reporting

// Renderer is the fixed adapter boundary the assembled Payload is handed
// across: the actual PDF/XLSX generation is an external collaborator's
// concern, not this package's.
type Renderer interface {
	RenderPDF(payload Payload) ([]byte, error)
	RenderXLSX(payload Payload) ([]byte, error)
}
