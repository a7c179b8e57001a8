package models

import (
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
)

// VerificationRecord is the public face of a certificate. It is safe to
// cache: validity is derived from it at read time.
type VerificationRecord struct {
	CertificateNumber string     `json:"certificate_number"`
	Status            Status     `json:"status"`
	Holder            string     `json:"holder"`
	Program           string     `json:"program"`
	IssuedDate        *time.Time `json:"issued_date,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
}

func RecordOf(c *Certification, program *Program) VerificationRecord {
	return VerificationRecord{
		CertificateNumber: c.CertificateNumber,
		Status:            c.Status,
		Holder:            c.HolderName,
		Program:           program.Name,
		IssuedDate:        c.IssuedDate,
		ExpiryDate:        c.ExpiryDate,
	}
}

type Verification struct {
	Valid     bool
	IsExpired bool
	Record    VerificationRecord
}

func (r VerificationRecord) Verify(now time.Time) Verification {
	c := Certification{Status: r.Status, ExpiryDate: r.ExpiryDate}
	return Verification{
		Valid:     c.IsActive(now),
		IsExpired: c.IsExpired(now),
		Record:    r,
	}
}

// RegistryEntry is one certified specialist in the public registry.
type RegistryEntry struct {
	CertificationID   id.CertificationID
	CertificateNumber string
	Holder            string
	ProgramID         id.CertificationProgramID
	ProgramName       string
	ProgramCode       string
	IssuedDate        time.Time
	ExpiryDate        time.Time
}

type RegistryFilter struct {
	ProgramID *id.CertificationProgramID
	Search    string
	At        time.Time
}

func (f RegistryFilter) ListFilter() ListFilter {
	return ListFilter{ProgramID: f.ProgramID, Status: StatusPassed, Active: true, At: f.At, HolderSearch: strings.TrimSpace(f.Search)}
}
