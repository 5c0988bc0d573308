package s3

type Document struct {
	ID       string       `json:"id"`
	TenantID string       `json:"tenant_id"`
	Data     []byte       `json:"data"`
	Kind     DocumentKind `json:"kind"`
	Type     DocumentType `json:"type"`
}

type DocumentKind string

const (
	DocumentKindXML DocumentKind = "xml"
	DocumentKindPdf DocumentKind = "pdf"
)

type DocumentType string

const (
	DocumentTypeNFSe DocumentType = "nfse"
)

// NewNFSeXMLDocument wraps the authorized XML of a fiscal document
func NewNFSeXMLDocument(tenantID, id string, xml []byte) *Document {
	return &Document{
		ID:       id,
		TenantID: tenantID,
		Data:     xml,
		Kind:     DocumentKindXML,
		Type:     DocumentTypeNFSe,
	}
}
