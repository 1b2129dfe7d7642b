package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/security"
)

func (s *Store) CreatePrincipal(ctx context.Context, p *domain.Principal) (err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.insert")
	defer func() { finish(sp, err) }()

	p.Email = domain.NormalizeEmail(p.Email)
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.EnsureCollections()

	if _, err = s.users.InsertOne(ctx, p); err != nil {
		if IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindPrincipalByEmail returns nil, nil when nobody owns the address.
func (s *Store) FindPrincipalByEmail(ctx context.Context, email string) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.find_by_email")
	defer func() { finish(sp, err) }()
	return s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (s *Store) FindPrincipalByID(ctx context.Context, id primitive.ObjectID) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.find_by_id", tracer.Tag("principal_id", id.Hex()))
	defer func() { finish(sp, err) }()
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetShowcase resolves the public profile: the principal with the given email, or the
// earliest admin when email is empty.
func (s *Store) GetShowcase(ctx context.Context, email string) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.showcase")
	defer func() { finish(sp, err) }()

	if email != "" {
		return s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
	}
	return s.findOne(ctx, bson.M{"role": domain.RoleAdmin},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Principal, error) {
	var p domain.Principal
	err := s.users.FindOne(ctx, filter, opts...).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.EnsureCollections()
	return &p, nil
}

func (s *Store) SetRole(ctx context.Context, email string, role domain.Role) (err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.set_role", tracer.Tag("role", string(role)))
	defer func() { finish(sp, err) }()

	res, err := s.users.UpdateOne(ctx,
		bson.M{"email": domain.NormalizeEmail(email)},
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

// SetPassword stores an already hashed password.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) (err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.set_password")
	defer func() { finish(sp, err) }()

	res, err := s.users.UpdateOne(ctx,
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

// UpdateProfile sets only the supplied fields. A raw password is hashed here.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, u domain.ProfileUpdate) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.update_profile")
	defer func() { finish(sp, err) }()

	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Email != nil {
		set["email"] = domain.NormalizeEmail(*u.Email)
	}
	if u.Password != nil {
		hash, herr := security.HashPassword(*u.Password)
		if herr != nil {
			return nil, herr
		}
		set["password_hash"] = hash
	}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.Contact != nil {
		set["contact"] = *u.Contact
	}
	p, err = s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if IsDup(err) {
		return nil, ErrDuplicate
	}
	return p, err
}

// SetProfilePicture swaps the picture reference and returns the one it replaced.
func (s *Store) SetProfilePicture(ctx context.Context, id primitive.ObjectID, img domain.Image) (prev *domain.Image, err error) {
	sp, ctx := startSpan(ctx, "mongo.principal.set_picture")
	defer func() { finish(sp, err) }()

	var before domain.Principal
	err = s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"profile_picture": img, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return before.ProfilePicture, nil
}

// AppendItem assigns a fresh id to item and pushes it onto the collection.
func (s *Store) AppendItem(ctx context.Context, id primitive.ObjectID, coll domain.Collection, item domain.Item) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.profile.append", tracer.Tag("collection", string(coll)))
	defer func() { finish(sp, err) }()

	item.SetItemID(primitive.NewObjectID())
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{string(coll): item},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

// UpdateItem replaces the element whose id is itemID. ErrNotFound when the principal or
// the element does not exist.
func (s *Store) UpdateItem(ctx context.Context, id primitive.ObjectID, coll domain.Collection, itemID primitive.ObjectID, item domain.Item) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.profile.update_item", tracer.Tag("collection", string(coll)))
	defer func() { finish(sp, err) }()

	item.SetItemID(itemID)
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": id, string(coll) + "._id": itemID},
		bson.M{"$set": bson.M{
			string(coll) + ".$": item,
			"updated_at":        time.Now().UTC(),
		}},
	)
}

// RemoveItem pulls the element whose id is itemID in a single update.
func (s *Store) RemoveItem(ctx context.Context, id primitive.ObjectID, coll domain.Collection, itemID primitive.ObjectID) (p *domain.Principal, err error) {
	sp, ctx := startSpan(ctx, "mongo.profile.remove_item", tracer.Tag("collection", string(coll)))
	defer func() { finish(sp, err) }()

	return s.findOneAndUpdate(ctx,
		bson.M{"_id": id, string(coll) + "._id": itemID},
		bson.M{
			"$pull": bson.M{string(coll): bson.M{"_id": itemID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Principal, error) {
	var p domain.Principal
	err := s.users.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.EnsureCollections()
	return &p, nil
}
