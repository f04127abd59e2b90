// Package connector defines the Connection model and the
// ConnectorService collaborator interface the evaluation kernel consumes
// to fetch live resource data. Provider SDK calls themselves are outside
// the kernel's scope; callers supply a concrete ConnectorService.
package connector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/schema"
)

// Type is the connection type enum. Wire values are fixed integers,
// persisted in connections.type.
type Type int

const (
	TypeGitHub           Type = 1
	TypeAWS              Type = 2
	TypeKubernetes       Type = 3
	TypeAzure            Type = 4
	TypeVMware           Type = 5
	TypeGitLab           Type = 6
	TypeTerraform        Type = 7
	TypeMicrosoft365     Type = 8
	TypeSlack            Type = 9
	TypeGoogle           Type = 10
	TypeSplunk           Type = 11
	TypeCisco            Type = 12
	TypeDatabase         Type = 13
	TypeFiles            Type = 14
	TypeIdentityServices Type = 15
	TypeFile             Type = 16
)

var typeNames = map[Type]string{
	TypeGitHub: "github", TypeAWS: "aws", TypeKubernetes: "kubernetes",
	TypeAzure: "azure", TypeVMware: "vmware", TypeGitLab: "gitlab",
	TypeTerraform: "terraform", TypeMicrosoft365: "microsoft_365",
	TypeSlack: "slack", TypeGoogle: "google", TypeSplunk: "splunk",
	TypeCisco: "cisco", TypeDatabase: "database", TypeFiles: "files",
	TypeIdentityServices: "identity_services", TypeFile: "file",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Connection identifies a credentialed target system.
type Connection struct {
	ID           uuid.UUID              `json:"id" db:"id" csv:"id"`
	CustomerID   uuid.UUID              `json:"customer_id" db:"customer_id" csv:"customer_id"`
	Type         Type                   `json:"type" db:"type" csv:"type"`
	Credentials  map[string]string      `json:"credentials" db:"credentials" csv:"credentials"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at" csv:"updated_at"`
	CreatedBy    string                 `json:"created_by" db:"created_by" csv:"created_by"`
	UpdatedBy    string                 `json:"updated_by" db:"updated_by" csv:"updated_by"`
	SyncedAt     *time.Time             `json:"synced_at,omitempty" db:"synced_at" csv:"synced_at"`
	SyncStatus   string                 `json:"sync_status" db:"sync_status" csv:"sync_status"`
	SyncError    string                 `json:"sync_error,omitempty" db:"sync_error" csv:"sync_error"`
	SyncFrequency string                `json:"sync_frequency,omitempty" db:"sync_frequency" csv:"sync_frequency"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"metadata" csv:"metadata"`
	IsDeleted    bool                   `json:"is_deleted" db:"is_deleted" csv:"is_deleted"`
	Info         InfoData               `json:"info" db:"info" csv:"info"`
	Alias        string                 `json:"alias,omitempty" db:"alias" csv:"alias"`
}

// InfoData carries provider-side metadata returned alongside a fetch:
// rate limits, the authenticated principal, and fetch timestamps. It is
// persisted into connections.metadata.info.
type InfoData struct {
	AuthenticatedPrincipal string            `json:"authenticated_principal,omitempty"`
	RateLimitRemaining     *int              `json:"rate_limit_remaining,omitempty"`
	RateLimitResetAt       *time.Time        `json:"rate_limit_reset_at,omitempty"`
	FetchedAt              time.Time         `json:"fetched_at"`
	Extra                  map[string]string `json:"extra,omitempty"`
}

// MergeInfoData combines a prior InfoData with a freshly fetched one:
// the newer non-zero fields win, but Extra keys are merged rather than
// replaced outright so accumulated diagnostic metadata from earlier
// fetches is not silently dropped.
func MergeInfoData(prev, next InfoData) InfoData {
	merged := prev
	if next.AuthenticatedPrincipal != "" {
		merged.AuthenticatedPrincipal = next.AuthenticatedPrincipal
	}
	if next.RateLimitRemaining != nil {
		merged.RateLimitRemaining = next.RateLimitRemaining
	}
	if next.RateLimitResetAt != nil {
		merged.RateLimitResetAt = next.RateLimitResetAt
	}
	if !next.FetchedAt.IsZero() {
		merged.FetchedAt = next.FetchedAt
	}
	if len(next.Extra) > 0 {
		if merged.Extra == nil {
			merged.Extra = make(map[string]string, len(next.Extra))
		}
		for k, v := range next.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}

// ResourceCollection is the result of one connector fetch.
type ResourceCollection struct {
	SourceConnector string          `json:"source_connector"`
	Resources       []schema.Value  `json:"resources"`
	TotalCount      int             `json:"total_count"`
	FetchedAt       time.Time       `json:"fetched_at"`
}

// Service is the collaborator interface the kernel consumes to fetch
// live configuration data. Concrete provider SDK integrations (GitHub,
// AWS, ...) live outside the kernel and implement this interface.
type Service interface {
	Fetch(ctx context.Context, credentials map[string]string) (InfoData, ResourceCollection, error)
}
