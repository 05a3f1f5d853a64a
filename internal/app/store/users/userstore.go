package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/app/system/normalize"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned when the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	errBadRole      = errors.New(`role must be "customer"|"seller"|"admin"`)
	errTenantNeeded = errors.New("customer/seller must have tenant_id")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// PasswordHash must already be hashed by the caller; this store never sees
// plaintext passwords.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = "customer"
	}

	if !inputval.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	// Admins span tenants; everyone else is scoped to exactly one.
	if u.Role != "admin" && u.TenantID == nil {
		return models.User{}, errTenantNeeded
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the profile fields a user may change about themselves.
// Zero-value strings mean "leave unchanged".
type ProfileUpdate struct {
	Name     string
	Username string
	Bio      string
	Image    string
}

// UpdateProfile applies a partial profile update.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != "" {
		name := normalize.Name(upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Username != "" {
		set["username"] = normalize.Name(upd.Username)
	}
	if upd.Bio != "" {
		set["bio"] = upd.Bio
	}
	if upd.Image != "" {
		set["image"] = upd.Image
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRole changes a user's role. Only admin handlers call this; the change
// is audited upstream.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	role = normalize.Role(role)
	if !inputval.IsValidRole(role) {
		return errBadRole
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEmailVerified marks a user's email as verified.
func (s *Store) SetEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"email_verified": true, "updated_at": time.Now().UTC()}},
	)
	return err
}

// UpdatePasswordHash replaces a user's password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List results. Nil/empty fields match everything.
type ListFilter struct {
	TenantID *primitive.ObjectID
	Role     string
	Search   string // matched against the folded name, prefix-style
	Page     int
	Limit    int
}

func (f ListFilter) toQuery() bson.M {
	q := bson.M{}
	if f.TenantID != nil {
		q["tenant_id"] = *f.TenantID
	}
	if role := normalize.Role(f.Role); role != "" {
		q["role"] = role
	}
	if f.Search != "" {
		q["name_ci"] = bson.M{"$regex": "^" + text.Fold(f.Search)}
	}
	return q
}

// List returns a page of users plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	page, limit := inputval.SanitizePagination(f.Page, f.Limit)
	query := f.toQuery()

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAll returns every user, optionally scoped to a tenant, oldest first.
// Pagination is deliberately skipped; this backs the admin CSV export.
func (s *Store) ListAll(ctx context.Context, tenantID *primitive.ObjectID) ([]models.User, error) {
	q := bson.M{}
	if tenantID != nil {
		q["tenant_id"] = *tenantID
	}

	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// CountByRole returns per-role user counts, used by platform stats.
func (s *Store) CountByRole(ctx context.Context, tenantID *primitive.ObjectID) (map[string]int64, error) {
	match := bson.M{}
	if tenantID != nil {
		match["tenant_id"] = *tenantID
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Role  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Role] = row.Count
	}
	return counts, cur.Err()
}
