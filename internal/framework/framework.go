// Package framework holds the read-only regulatory control catalog
// reference data: Frameworks, Controls, and industry Standard mappings.
package framework

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Framework is a catalog of Controls, e.g. NIST 800-53.
type Framework struct {
	ID          uuid.UUID `json:"id" db:"id" csv:"id"`
	Name        string    `json:"name" db:"name" csv:"name"`
	Description string    `json:"description" db:"description" csv:"description"`
	Path        string    `json:"path" db:"path" csv:"path"`
	Version     string    `json:"version" db:"version" csv:"version"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" csv:"updated_at"`
	Active      bool      `json:"active" db:"active" csv:"active"`
}

// Control is the human-authored requirement an automated Check targets.
type Control struct {
	ID                        uuid.UUID  `json:"id" db:"id" csv:"id"`
	FrameworkID               uuid.UUID  `json:"framework_id" db:"framework_id" csv:"framework_id"`
	ControlParentID           *uuid.UUID `json:"control_parent_id,omitempty" db:"control_parent_id" csv:"control_parent_id"`
	ControlName               string     `json:"control_name" db:"control_name" csv:"control_name"`
	FamilyName                string     `json:"family_name" db:"family_name" csv:"family_name"`
	ControlLongName           string     `json:"control_long_name" db:"control_long_name" csv:"control_long_name"`
	ControlText               string     `json:"control_text" db:"control_text" csv:"control_text"`
	ControlDiscussion         string     `json:"control_discussion" db:"control_discussion" csv:"control_discussion"`
	ControlSummary            string     `json:"control_summary" db:"control_summary" csv:"control_summary"`
	SourceControlMappingEmb   []float64  `json:"source_control_mapping_emb,omitempty" db:"source_control_mapping_emb" csv:"source_control_mapping_emb"`
	ControlEvalCriteria       string     `json:"control_eval_criteria" db:"control_eval_criteria" csv:"control_eval_criteria"`
	CreatedAt                 time.Time  `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at" db:"updated_at" csv:"updated_at"`
	Active                    bool       `json:"active" db:"active" csv:"active"`
	SourceControlMapping      string     `json:"source_control_mapping" db:"source_control_mapping" csv:"source_control_mapping"`
	OrderIndex                int        `json:"order_index" db:"order_index" csv:"order_index"`
	ControlShortSummary       string     `json:"control_short_summary" db:"control_short_summary" csv:"control_short_summary"`
}

// Family derives the control family from the leading alphabetic prefix
// of ControlName (e.g. "AC-2" -> "AC"), used to look up severity and
// category defaults during Check generation.
func (c Control) Family() string {
	if c.FamilyName != "" {
		return c.FamilyName
	}
	i := 0
	for i < len(c.ControlName) && (c.ControlName[i] >= 'A' && c.ControlName[i] <= 'Z' || c.ControlName[i] >= 'a' && c.ControlName[i] <= 'z') {
		i++
	}
	return strings.ToUpper(c.ControlName[:i])
}

// Standard is an industry standard mapped to one or more controls.
// Read-only to the kernel.
type Standard struct {
	ID               uuid.UUID `json:"id" db:"id" csv:"id"`
	Name             string    `json:"name" db:"name" csv:"name"`
	ShortDescription string    `json:"short_description" db:"short_description" csv:"short_description"`
	LongDescription  string    `json:"long_description" db:"long_description" csv:"long_description"`
	Path             string    `json:"path" db:"path" csv:"path"`
	Labels           []string  `json:"labels,omitempty" db:"labels" csv:"labels"`
	CreatedAt        time.Time `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at" csv:"updated_at"`
	Active           bool      `json:"active" db:"active" csv:"active"`
	FrameworkID      uuid.UUID `json:"framework_id" db:"framework_id" csv:"framework_id"`
	Index            int       `json:"index" db:"index" csv:"index"`
}

// StandardControlMapping maps a Standard to a Control. Read-only to the
// kernel.
type StandardControlMapping struct {
	ID                           uuid.UUID `json:"id" db:"id" csv:"id"`
	StandardID                   uuid.UUID `json:"standard_id" db:"standard_id" csv:"standard_id"`
	ControlID                    uuid.UUID `json:"control_id" db:"control_id" csv:"control_id"`
	AdditionalSelectionParameters string    `json:"additional_selection_parameters,omitempty" db:"additional_selection_parameters" csv:"additional_selection_parameters"`
	AdditionalGuidance           string    `json:"additional_guidance,omitempty" db:"additional_guidance" csv:"additional_guidance"`
	CreatedAt                    time.Time `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at" db:"updated_at" csv:"updated_at"`
}

// ControlChecksMapping links a Control to a generated Check.
type ControlChecksMapping struct {
	ControlID uuid.UUID `json:"control_id" db:"control_id" csv:"control_id"`
	CheckID   uuid.UUID `json:"check_id" db:"check_id" csv:"check_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at" csv:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" csv:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted" csv:"is_deleted"`
}
