package handler

import (
	"encoding/json"
	"time"

	"github.com/fudign/kfa-sub000/internal/certification/models"
)

type ProgramResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	Type             string    `json:"type"`
	Description      string    `json:"description,omitempty"`
	ValidityMonths   int       `json:"validity_months"`
	CPEHoursRequired float64   `json:"cpe_hours_required"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func FromProgram(p *models.Program) ProgramResponse {
	return ProgramResponse{
		ID:               p.ID.String(),
		Name:             p.Name,
		Code:             p.Code,
		Type:             string(p.Type),
		Description:      p.Description,
		ValidityMonths:   p.ValidityMonths,
		CPEHoursRequired: p.CPEHoursRequired,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type CertificationResponse struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	ProgramID         string          `json:"program_id"`
	CertificateNumber string          `json:"certificate_number"`
	HolderName        string          `json:"holder_name"`
	Status            string          `json:"status"`
	ExamScore         *int            `json:"exam_score"`
	ExamDate          *string         `json:"exam_date"`
	ExamResults       json.RawMessage `json:"exam_results,omitempty"`
	IssuedDate        *string         `json:"issued_date"`
	ExpiryDate        *string         `json:"expiry_date"`
	IssuedBy          *string         `json:"issued_by"`
	ReviewedBy        *string         `json:"reviewed_by"`
	ReviewedAt        *time.Time      `json:"reviewed_at"`
	RevokedBy         *string         `json:"revoked_by"`
	RevokedAt         *time.Time      `json:"revoked_at"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func FromCertification(c *models.Certification) CertificationResponse {
	resp := CertificationResponse{
		ID:                c.ID.String(),
		UserID:            c.UserID.String(),
		ProgramID:         c.ProgramID.String(),
		CertificateNumber: c.CertificateNumber,
		HolderName:        c.HolderName,
		Status:            string(c.Status),
		ExamScore:         c.ExamScore,
		ExamDate:          dateOnly(c.ExamDate),
		ExamResults:       c.ExamResults,
		IssuedDate:        dateOnly(c.IssuedDate),
		ExpiryDate:        dateOnly(c.ExpiryDate),
		ReviewedAt:        c.ReviewedAt,
		RevokedAt:         c.RevokedAt,
		Notes:             c.Notes,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if c.IssuedBy != nil {
		v := c.IssuedBy.String()
		resp.IssuedBy = &v
	}
	if c.ReviewedBy != nil {
		v := c.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if c.RevokedBy != nil {
		v := c.RevokedBy.String()
		resp.RevokedBy = &v
	}
	return resp
}

// VerifiedCertificate is the public view of a certificate. It never carries
// exam results or notes.
type VerifiedCertificate struct {
	CertificateNumber string  `json:"certificate_number"`
	Status            string  `json:"status"`
	Holder            string  `json:"holder"`
	Program           string  `json:"program"`
	IssuedDate        *string `json:"issued_date"`
	ExpiryDate        *string `json:"expiry_date"`
	IsExpired         bool    `json:"is_expired"`
}

type VerifyResponse struct {
	Valid       bool                 `json:"valid"`
	Certificate *VerifiedCertificate `json:"certificate,omitempty"`
	Message     string               `json:"message,omitempty"`
}

func FromVerification(v models.Verification) VerifyResponse {
	return VerifyResponse{
		Valid: v.Valid,
		Certificate: &VerifiedCertificate{
			CertificateNumber: v.Record.CertificateNumber,
			Status:            string(v.Record.Status),
			Holder:            v.Record.Holder,
			Program:           v.Record.Program,
			IssuedDate:        dateOnly(v.Record.IssuedDate),
			ExpiryDate:        dateOnly(v.Record.ExpiryDate),
			IsExpired:         v.IsExpired,
		},
	}
}

type RegistryEntryResponse struct {
	CertificateNumber string `json:"certificate_number"`
	Holder            string `json:"holder"`
	ProgramID         string `json:"program_id"`
	ProgramName       string `json:"program_name"`
	ProgramCode       string `json:"program_code"`
	IssuedDate        string `json:"issued_date"`
	ExpiryDate        string `json:"expiry_date"`
}

func FromRegistryEntry(e models.RegistryEntry) RegistryEntryResponse {
	return RegistryEntryResponse{
		CertificateNumber: e.CertificateNumber,
		Holder:            e.Holder,
		ProgramID:         e.ProgramID.String(),
		ProgramName:       e.ProgramName,
		ProgramCode:       e.ProgramCode,
		IssuedDate:        e.IssuedDate.Format(time.DateOnly),
		ExpiryDate:        e.ExpiryDate.Format(time.DateOnly),
	}
}

type ProgramCountResponse struct {
	ProgramID string `json:"program_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Count     int    `json:"count"`
}

type StatsResponse struct {
	Total     int                    `json:"total"`
	ByStatus  map[string]int         `json:"by_status"`
	Expired   int                    `json:"expired"`
	Active    int                    `json:"active"`
	ByProgram []ProgramCountResponse `json:"by_program"`
}

func FromStats(s models.Stats) StatsResponse {
	resp := StatsResponse{
		Total:     s.Total,
		ByStatus:  make(map[string]int, len(models.AllStatuses)),
		Expired:   s.Expired,
		Active:    s.Active,
		ByProgram: make([]ProgramCountResponse, 0, len(s.ByProgram)),
	}
	for _, status := range models.AllStatuses {
		resp.ByStatus[string(status)] = s.ByStatus[status]
	}
	for _, pc := range s.ByProgram {
		resp.ByProgram = append(resp.ByProgram, ProgramCountResponse{
			ProgramID: pc.ProgramID.String(),
			Name:      pc.Name,
			Code:      pc.Code,
			Count:     pc.Count,
		})
	}
	return resp
}

func dateOnly(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
