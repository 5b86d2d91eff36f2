package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"gitlab.com/pdhero/retur/internal/db"
	"gitlab.com/pdhero/retur/internal/repository"
	"gitlab.com/pdhero/retur/internal/storage"
)

const returnColumns = `
            id, no_nota_retur, tanggal_pengajuan, nama_barang, quantity, satuan, tanggal_ed, alasan,
            COALESCE(form_retur, '') AS form_retur, COALESCE(berita_acara, '') AS berita_acara,
            status, created_at, updated_at, version`

type ReturnRepo struct {
	db db.DB
}

func NewReturnRepo(db db.DB) storage.ReturnRepository {
	return &ReturnRepo{db: db}
}

func (r *ReturnRepo) List(ctx context.Context) ([]*repository.ReturnRow, error) {
	var rows []*repository.ReturnRow
	err := r.db.Select(ctx, &rows, `
        SELECT`+returnColumns+`
        FROM retur
        ORDER BY created_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReturnRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Get(ctx, &n, `SELECT count(*) FROM retur`); err != nil {
		return 0, err
	}
	return n, nil
}

// NumbersForPeriod returns every document number starting with prefix, e.g.
// "2024/05".
func (r *ReturnRepo) NumbersForPeriod(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	err := r.db.Select(ctx, &numbers, `
        SELECT no_nota_retur FROM retur WHERE no_nota_retur LIKE $1
    `, prefix+"/%")
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *ReturnRepo) GetByNumber(ctx context.Context, number string) (*repository.ReturnRow, error) {
	var row repository.ReturnRow
	err := r.db.Get(ctx, &row, `SELECT`+returnColumns+` FROM retur WHERE no_nota_retur = $1`, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

// GetByNumberTx locks the row for the rest of tx.
func (r *ReturnRepo) GetByNumberTx(ctx context.Context, tx db.Tx, number string) (*repository.ReturnRow, error) {
	var row repository.ReturnRow
	err := tx.Get(ctx, &row, `SELECT`+returnColumns+` FROM retur WHERE no_nota_retur = $1 FOR UPDATE`, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

// CreateTx inserts row and fills in its generated id and version.
func (r *ReturnRepo) CreateTx(ctx context.Context, tx db.Tx, row *repository.ReturnRow) error {
	var created struct {
		ID      int64 `db:"id"`
		Version int64 `db:"version"`
	}
	err := tx.Get(ctx, &created, `
        INSERT INTO retur (
            no_nota_retur, tanggal_pengajuan, nama_barang, quantity, satuan, tanggal_ed,
            alasan, form_retur, berita_acara, status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, version
    `, row.NoNotaRetur, row.TanggalPengajuan, row.NamaBarang, row.Quantity, row.Satuan, row.TanggalED,
		row.Alasan, row.FormRetur, row.BeritaAcara, row.Status, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return err
	}
	row.ID = created.ID
	row.Version = created.Version
	return nil
}

// UpdateTx writes row if its version still matches the stored one and bumps
// the version on success.
func (r *ReturnRepo) UpdateTx(ctx context.Context, tx db.Tx, row *repository.ReturnRow) error {
	tag, err := tx.Exec(ctx, `
        UPDATE retur
        SET
            tanggal_pengajuan = $3,
            nama_barang = $4,
            quantity = $5,
            satuan = $6,
            tanggal_ed = $7,
            alasan = $8,
            form_retur = $9,
            berita_acara = $10,
            status = $11,
            updated_at = $12,
            version = version + 1
        WHERE no_nota_retur = $1 AND version = $2
    `, row.NoNotaRetur, row.Version, row.TanggalPengajuan, row.NamaBarang, row.Quantity, row.Satuan,
		row.TanggalED, row.Alasan, row.FormRetur, row.BeritaAcara, row.Status, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update %s: %w", row.NoNotaRetur, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}
	row.Version++
	return nil
}

func (r *ReturnRepo) DeleteTx(ctx context.Context, tx db.Tx, number string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM retur WHERE no_nota_retur = $1`, number)
	if err != nil {
		return fmt.Errorf("delete %s: %w", number, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}
