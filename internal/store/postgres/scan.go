package postgres

import (
	"database/sql"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanPublishedEvent scans a row whose columns match eventColumns.
func scanPublishedEvent(row scannable) (*model.PublishedEvent, error) {
	var pe model.PublishedEvent
	var raw []byte
	err := row.Scan(
		&pe.ID,
		&pe.EventID,
		&pe.Pubkey,
		&pe.Kind,
		&pe.DTag,
		&pe.CreatedAt,
		&raw,
		&pe.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	pe.Raw = raw
	return &pe, nil
}

// scanCard scans a row from the cards table.
func scanCard(row scannable) (*model.Card, error) {
	var c model.Card
	var imageURL sql.NullString
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Rarity,
		&imageURL,
		&c.PriceSats,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ImageURL = imageURL.String
	return &c, nil
}
