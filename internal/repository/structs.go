package repository

import (
	"errors"
	"time"
)

var (
	ErrObjectNotFound  = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

// ReturnRow mirrors one row of the retur table. Status and Satuan stay raw
// strings here; the storage layer decides whether they are recognised.
type ReturnRow struct {
	ID               int64     `db:"id"`
	NoNotaRetur      string    `db:"no_nota_retur"`
	TanggalPengajuan time.Time `db:"tanggal_pengajuan"`
	NamaBarang       string    `db:"nama_barang"`
	Quantity         int       `db:"quantity"`
	Satuan           string    `db:"satuan"`
	TanggalED        time.Time `db:"tanggal_ed"`
	Alasan           string    `db:"alasan"`
	FormRetur        string    `db:"form_retur"`
	BeritaAcara      string    `db:"berita_acara"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
	Version          int64     `db:"version"`
}
