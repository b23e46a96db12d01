package compliance

// Framework represents a legal or regulatory framework a criterion derives from
type Framework struct {
	ID          string // Unique identifier (e.g., "gdpr", "tdddg")
	Name        string // Display name
	Description string // Brief description
	Region      string // Geographic region
}

// SupportedFrameworks returns the frameworks criteria are mapped onto
func SupportedFrameworks() []Framework {
	return []Framework{
		{
			ID:          "gdpr",
			Name:        "GDPR (EU 2016/679)",
			Description: "General Data Protection Regulation",
			Region:      "EU",
		},
		{
			ID:          "eprivacy",
			Name:        "ePrivacy Directive (2002/58/EC)",
			Description: "Confidentiality of communications and terminal equipment access",
			Region:      "EU",
		},
		{
			ID:          "tdddg",
			Name:        "TDDDG",
			Description: "German Telecommunications Digital Services Data Protection Act",
			Region:      "Germany",
		},
		{
			ID:          "bsi",
			Name:        "BSI TR-02102-2",
			Description: "Cryptographic mechanisms: use of Transport Layer Security",
			Region:      "Germany",
		},
	}
}

// GetFramework returns a framework by ID
func GetFramework(id string) (Framework, bool) {
	for _, f := range SupportedFrameworks() {
		if f.ID == id {
			return f, true
		}
	}
	return Framework{}, false
}
