package domain

import "time"

// Conclusion is the human-reviewer disposition of a flagged shipment.
type Conclusion string

const (
	ConclusionPending  Conclusion = "pending"
	ConclusionAccepted Conclusion = "accepted"
	ConclusionRejected Conclusion = "rejected"
	ConclusionIgnored  Conclusion = "ignored"
)

// ValidConclusion reports whether c is one of the known dispositions.
func ValidConclusion(c Conclusion) bool {
	switch c {
	case ConclusionPending, ConclusionAccepted, ConclusionRejected, ConclusionIgnored:
		return true
	}
	return false
}

// DefaultExceptionTag is attached when a row carries a non-zero fee
// difference but the source sheet did not classify it.
const DefaultExceptionTag = "费用差额"

// UnknownProvince is the placeholder for rows without a destination province.
const UnknownProvince = "未知"

// Shipment is one imported bill line after normalization. It belongs to
// exactly one batch and is never re-parented; only the conclusion and the
// processing note change after creation.
type Shipment struct {
	ID              string     `json:"id"`
	BatchID         string     `json:"batch_id"`
	WaybillNumber   string     `json:"waybill_number"`
	Courier         string     `json:"courier"`
	Province        string     `json:"province"`
	ShippingDate    time.Time  `json:"shipping_date"`
	TotalDifference float64    `json:"total_difference"`
	ExceptionTypes  []string   `json:"exception_types"`
	Conclusion      Conclusion `json:"conclusion"`
	ProcessingNote  *string    `json:"processing_note"`
	RawData         RawRow     `json:"raw_data,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasException reports whether the shipment carries at least one tag.
func (s *Shipment) HasException() bool { return len(s.ExceptionTypes) > 0 }
