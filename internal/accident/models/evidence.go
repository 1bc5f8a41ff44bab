package models

import (
	"time"

	"amicable/pkg/domain"
)

// Point is one sketch vertex, in canvas offsets.
type Point struct {
	OffsetX int `json:"offsetX"`
	OffsetY int `json:"offsetY"`
}

// Sketch is the ordered point list drawn for one statement. A statement with
// no Sketch row has no sketch yet; a Sketch with no points is a drawn but
// empty canvas and still counts as present.
type Sketch struct {
	ID          domain.SketchID    `json:"id"`
	StatementID domain.StatementID `json:"statement_id"`
	Points      []Point            `json:"points"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func NewSketch(statementID domain.StatementID, points []Point, now time.Time) *Sketch {
	if points == nil {
		points = []Point{}
	}
	return &Sketch{StatementID: statementID, Points: points, CreatedAt: now, UpdatedAt: now}
}

// Image is the metadata row for one uploaded photo. The bytes live in the
// blob store under BlobKey.
type Image struct {
	ID          domain.ImageID     `json:"id"`
	StatementID domain.StatementID `json:"statement_id"`
	BlobKey     string             `json:"-"`
	ContentType string             `json:"content_type"`
	Size        int64              `json:"size"`
	CreatedAt   time.Time          `json:"created_at"`
}
