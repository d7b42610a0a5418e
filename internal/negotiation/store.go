package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a negotiation id has no record.
var ErrNotFound = errors.New("negotiation not found")

// Reader is the narrow read-only view handed to the advisory engine.
type Reader interface {
	Get(ctx context.Context, id string) (Negotiation, error)
}

type negotiationRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Commodity    string `gorm:"index"`
	BuyerID      string `gorm:"index"`
	SellerID     string `gorm:"index"`
	AgentID      string
	Proposal     datatypes.JSON
	Messages     datatypes.JSON
	CurrentOffer float64
	Status       string `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (negotiationRecord) TableName() string { return "negotiations" }

// Store persists negotiations in SQLite via gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("negotiation store requires a database path")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&negotiationRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Create validates the proposal, assigns an id if missing, and persists the
// negotiation in active state.
func (s *Store) Create(ctx context.Context, n *Negotiation) error {
	if n == nil {
		return fmt.Errorf("negotiation cannot be nil")
	}
	if err := n.Proposal.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(n.ID) == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = StatusActive
	}
	if n.CurrentOffer <= 0 {
		n.CurrentOffer = n.Proposal.ProposedPrice
	}
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now
	rec, err := toRecord(*n)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Store) Get(ctx context.Context, id string) (Negotiation, error) {
	var rec negotiationRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Negotiation{}, ErrNotFound
	}
	if err != nil {
		return Negotiation{}, err
	}
	return fromRecord(rec)
}

// AppendMessage adds a chat entry and optionally moves the current offer.
// Terminal negotiations reject further messages.
func (s *Store) AppendMessage(ctx context.Context, id string, msg Message, newOffer float64) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Status.Terminal() {
		return fmt.Errorf("negotiation %s is %s and no longer accepts messages", id, n.Status)
	}
	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	n.Messages = append(n.Messages, msg)
	if newOffer > 0 {
		n.CurrentOffer = newOffer
	}
	n.UpdatedAt = time.Now()
	rec, err := toRecord(n)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// SetStatus transitions the lifecycle. Terminal states are final.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Status.Terminal() {
		return fmt.Errorf("negotiation %s already %s", id, n.Status)
	}
	return s.db.WithContext(ctx).Model(&negotiationRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()}).Error
}

// ListActive returns non-terminal negotiations, oldest first.
func (s *Store) ListActive(ctx context.Context) ([]Negotiation, error) {
	var recs []negotiationRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", string(StatusActive)).
		Order("created_at asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]Negotiation, 0, len(recs))
	for _, rec := range recs {
		n, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func toRecord(n Negotiation) (negotiationRecord, error) {
	proposal, err := json.Marshal(n.Proposal)
	if err != nil {
		return negotiationRecord{}, err
	}
	messages, err := json.Marshal(n.Messages)
	if err != nil {
		return negotiationRecord{}, err
	}
	return negotiationRecord{
		ID:           n.ID,
		Commodity:    strings.ToLower(strings.TrimSpace(n.Proposal.Commodity)),
		BuyerID:      n.BuyerID,
		SellerID:     n.SellerID,
		AgentID:      n.AgentID,
		Proposal:     datatypes.JSON(proposal),
		Messages:     datatypes.JSON(messages),
		CurrentOffer: n.CurrentOffer,
		Status:       string(n.Status),
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}, nil
}

func fromRecord(rec negotiationRecord) (Negotiation, error) {
	n := Negotiation{
		ID:           rec.ID,
		BuyerID:      rec.BuyerID,
		SellerID:     rec.SellerID,
		AgentID:      rec.AgentID,
		CurrentOffer: rec.CurrentOffer,
		Status:       Status(rec.Status),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if len(rec.Proposal) > 0 {
		if err := json.Unmarshal(rec.Proposal, &n.Proposal); err != nil {
			return Negotiation{}, fmt.Errorf("negotiation %s proposal corrupt: %w", rec.ID, err)
		}
	}
	if len(rec.Messages) > 0 {
		if err := json.Unmarshal(rec.Messages, &n.Messages); err != nil {
			return Negotiation{}, fmt.Errorf("negotiation %s messages corrupt: %w", rec.ID, err)
		}
	}
	return n, nil
}
