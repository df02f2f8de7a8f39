package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

const usersCollection = "users"

// UserStore persists users in MongoDB. The refresh token hash is written
// only through its own single-field updates so rotation can compare-and-swap
// on it; Save never carries it. Soft-deleted users are invisible to every
// method.
type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID            string `bson:"_id"`
	Email         string `bson:"email"`
	PasswordHash  string `bson:"password_hash"`
	FirstName     string `bson:"first_name"`
	LastName      string `bson:"last_name"`
	WalletAddress string `bson:"wallet_address,omitempty"`
	Role          string `bson:"role"`

	IsEmailVerified       bool   `bson:"is_email_verified"`
	VerificationSelector  string `bson:"verification_selector,omitempty"`
	VerificationHash      string `bson:"verification_hash,omitempty"`
	VerificationExpiresAt int64  `bson:"verification_expires_at,omitempty"`

	ResetSelector  string `bson:"reset_selector,omitempty"`
	ResetHash      string `bson:"reset_hash,omitempty"`
	ResetExpiresAt int64  `bson:"reset_expires_at,omitempty"`

	RefreshTokenHash string `bson:"refresh_token_hash,omitempty"`

	CreatedAt int64 `bson:"created_at"`
	UpdatedAt int64 `bson:"updated_at"`
	DeletedAt int64 `bson:"deleted_at,omitempty"`
}

// live restricts filter to users that have not been soft-deleted.
func live(filter bson.M) bson.M {
	filter["deleted_at"] = bson.M{"$exists": false}
	return filter
}

// EnsureIndexes creates the indexes the lookups rely on. The email index is
// unique and backs domain.ErrUserExists, the wallet index backs
// domain.ErrWalletInUse. Sparse indexes skip users without the field.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "wallet_address", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "reset_selector", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "verification_selector", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := s.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, live(bson.M{"_id": id}))
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, live(bson.M{"email": email}))
}

func (s *UserStore) FindByResetSelector(ctx context.Context, selector string) (*domain.User, error) {
	if selector == "" {
		return nil, domain.ErrUserNotFound
	}
	return s.findOne(ctx, live(bson.M{"reset_selector": selector}))
}

func (s *UserStore) FindByVerificationSelector(ctx context.Context, selector string) (*domain.User, error) {
	if selector == "" {
		return nil, domain.ErrUserNotFound
	}
	return s.findOne(ctx, live(bson.M{"verification_selector": selector}))
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, toMongoUser(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateKey(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// List returns one page of live users, newest first, and the total number of
// matches.
func (s *UserStore) List(ctx context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := listFilter(f)
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoUser
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, total, nil
}

// Save writes the account fields of user. Empty optional fields are removed.
// The refresh token hash and the deletion stamp are left as stored.
func (s *UserStore) Save(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, live(bson.M{"_id": user.ID}), saveUpdate(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateKey(err)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at and drops the session in one update.
func (s *UserStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"deleted_at": at.Unix(), "updated_at": at.Unix()},
		"$unset": bson.M{"refresh_token_hash": ""},
	}
	res, err := s.coll.UpdateOne(ctx, live(bson.M{"_id": id}), update)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, live(bson.M{"_id": id}), refreshHashUpdate(hash))
	if err != nil {
		return fmt.Errorf("update refresh hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SwapRefreshTokenHash matches on the expected hash in the same filter as
// the id, so the check and the write are one atomic document update. An
// empty expected hash never matches.
func (s *UserStore) SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error) {
	if expected == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, swapFilter(id, expected), refreshHashUpdate(next))
	if err != nil {
		return false, fmt.Errorf("swap refresh hash: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := s.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func swapFilter(id, expected string) bson.M {
	return live(bson.M{"_id": id, "refresh_token_hash": expected})
}

func listFilter(f ports.UserFilter) bson.M {
	filter := live(bson.M{})
	if f.Role != "" {
		filter["role"] = f.Role
	}
	created := bson.M{}
	if !f.CreatedFrom.IsZero() {
		created["$gte"] = f.CreatedFrom.Unix()
	}
	if !f.CreatedTo.IsZero() {
		created["$lt"] = f.CreatedTo.Unix()
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}

// saveUpdate builds the $set/$unset document for Save. It never names
// refresh_token_hash or deleted_at.
func saveUpdate(u *domain.User) bson.M {
	set := bson.M{
		"email":             u.Email,
		"password_hash":     u.PasswordHash,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"role":              u.Role,
		"is_email_verified": u.IsEmailVerified,
		"created_at":        timeToUnix(u.CreatedAt),
		"updated_at":        timeToUnix(u.UpdatedAt),
	}
	unset := bson.M{}

	optional := map[string]any{
		"wallet_address":          u.WalletAddress,
		"verification_selector":   u.VerificationSelector,
		"verification_hash":       u.VerificationHash,
		"verification_expires_at": timeToUnix(u.VerificationExpiresAt),
		"reset_selector":          u.ResetSelector,
		"reset_hash":              u.ResetHash,
		"reset_expires_at":        timeToUnix(u.ResetExpiresAt),
	}
	for field, v := range optional {
		if v == "" || v == int64(0) {
			unset[field] = ""
			continue
		}
		set[field] = v
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// duplicateKey tells the wallet index apart from the email index.
func duplicateKey(err error) error {
	if strings.Contains(err.Error(), "wallet_address") {
		return domain.ErrWalletInUse
	}
	return domain.ErrUserExists
}

func refreshHashUpdate(hash string) bson.M {
	now := time.Now().UTC().Unix()
	if hash == "" {
		return bson.M{
			"$unset": bson.M{"refresh_token_hash": ""},
			"$set":   bson.M{"updated_at": now},
		}
	}
	return bson.M{"$set": bson.M{"refresh_token_hash": hash, "updated_at": now}}
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:                    u.ID,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		WalletAddress:         u.WalletAddress,
		Role:                  u.Role,
		IsEmailVerified:       u.IsEmailVerified,
		VerificationSelector:  u.VerificationSelector,
		VerificationHash:      u.VerificationHash,
		VerificationExpiresAt: timeToUnix(u.VerificationExpiresAt),
		ResetSelector:         u.ResetSelector,
		ResetHash:             u.ResetHash,
		ResetExpiresAt:        timeToUnix(u.ResetExpiresAt),
		RefreshTokenHash:      u.RefreshTokenHash,
		CreatedAt:             timeToUnix(u.CreatedAt),
		UpdatedAt:             timeToUnix(u.UpdatedAt),
		DeletedAt:             timeToUnix(u.DeletedAt),
	}
}

func (mu mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                    mu.ID,
		Email:                 mu.Email,
		PasswordHash:          mu.PasswordHash,
		FirstName:             mu.FirstName,
		LastName:              mu.LastName,
		WalletAddress:         mu.WalletAddress,
		Role:                  mu.Role,
		IsEmailVerified:       mu.IsEmailVerified,
		VerificationSelector:  mu.VerificationSelector,
		VerificationHash:      mu.VerificationHash,
		VerificationExpiresAt: unixToTime(mu.VerificationExpiresAt),
		ResetSelector:         mu.ResetSelector,
		ResetHash:             mu.ResetHash,
		ResetExpiresAt:        unixToTime(mu.ResetExpiresAt),
		RefreshTokenHash:      mu.RefreshTokenHash,
		CreatedAt:             unixToTime(mu.CreatedAt),
		UpdatedAt:             unixToTime(mu.UpdatedAt),
		DeletedAt:             unixToTime(mu.DeletedAt),
	}
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
