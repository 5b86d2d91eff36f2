package storage

import (
	"fmt"

	"gitlab.com/pdhero/retur/internal/repository"
	"gitlab.com/pdhero/retur/internal/retur"
)

// rowToRecord keeps unrecognised status and unit values as they are stored
// and reports them as warnings instead of dropping the row.
func rowToRecord(row *repository.ReturnRow) (retur.Record, []string) {
	var warnings []string

	status := retur.Status(row.Status)
	if !status.Valid() {
		warnings = append(warnings, fmt.Sprintf("return %s has unknown status %q", row.NoNotaRetur, row.Status))
	}

	unit, err := retur.ParseUnit(row.Satuan)
	if err != nil {
		unit = retur.Unit(row.Satuan)
		warnings = append(warnings, fmt.Sprintf("return %s has unknown unit %q", row.NoNotaRetur, row.Satuan))
	}

	return retur.Record{
		ID:               row.ID,
		DocumentNumber:   row.NoNotaRetur,
		SubmissionDate:   row.TanggalPengajuan,
		ItemName:         row.NamaBarang,
		Quantity:         row.Quantity,
		Unit:             unit,
		ExpiryDate:       row.TanggalED,
		Reason:           row.Alasan,
		FormReference:    row.FormRetur,
		MinutesReference: row.BeritaAcara,
		Status:           status,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		Version:          row.Version,
	}, warnings
}

func recordToRow(rec retur.Record) *repository.ReturnRow {
	return &repository.ReturnRow{
		ID:               rec.ID,
		NoNotaRetur:      rec.DocumentNumber,
		TanggalPengajuan: rec.SubmissionDate,
		NamaBarang:       rec.ItemName,
		Quantity:         rec.Quantity,
		Satuan:           string(rec.Unit),
		TanggalED:        rec.ExpiryDate,
		Alasan:           rec.Reason,
		FormRetur:        rec.FormReference,
		BeritaAcara:      rec.MinutesReference,
		Status:           string(rec.Status),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		Version:          rec.Version,
	}
}
