package models

// S3EventNotification is the subset of the object-storage notification shape
// the ingest worker cares about.
type S3EventNotification struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string        `json:"eventName"`
	S3        S3EventEntity `json:"s3"`
}

type S3EventEntity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key string `json:"key"`
}

// AnalysisCompletion is the OCR completion notification published to the SNS
// topic, either by the OCR service itself or by the synchronous fallback path.
type AnalysisCompletion struct {
	JobID  string `json:"JobId"`
	Status string `json:"Status"`
	API    string `json:"API,omitempty"`
	JobTag string `json:"JobTag"`
	// Blocks is only populated by the synchronous fallback, which embeds the
	// analysis output directly instead of leaving it to be fetched by job ID.
	Blocks []AnalysisBlock `json:"Blocks,omitempty"`
}

// AnalysisBlock mirrors one OCR output block. Only the fields used by the
// parser are mapped.
type AnalysisBlock struct {
	ID            string              `json:"Id"`
	BlockType     string              `json:"BlockType"`
	Text          string              `json:"Text,omitempty"`
	EntityTypes   []string            `json:"EntityTypes,omitempty"`
	Relationships []BlockRelationship `json:"Relationships,omitempty"`
}

type BlockRelationship struct {
	Type string   `json:"Type"`
	IDs  []string `json:"Ids"`
}

// ExtractedDocument is the parsed OCR output forwarded for verification.
type ExtractedDocument struct {
	Text          []string          `json:"text"`
	KeyValuePairs map[string]string `json:"keyValuePairs"`
}

// VerificationResult is the message sent to the verification results queue.
type VerificationResult struct {
	ClientID      string            `json:"clientId"`
	ExtractedData ExtractedDocument `json:"extractedData"`
	Metadata      JobMetadata       `json:"metadata"`
	Timestamp     string            `json:"timestamp"`
}

// JobMetadata is the information packed into the OCR job tag, pipe-delimited as
// clientID|bucket|key so it survives the round trip through the OCR service.
type JobMetadata struct {
	ClientID string `json:"clientId"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
}

// VerificationRequest asks the emailer to invite a client to upload a document.
type VerificationRequest struct {
	ClientID    string `json:"clientId"`
	ClientEmail string `json:"clientEmail"`
	AgentID     string `json:"agent_Id"`
	AgentEmail  string `json:"agentEmail"`
}
