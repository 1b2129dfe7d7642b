package http_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/media"
	"github.com/Leul120/portfolio/internal/repo"
	"github.com/Leul120/portfolio/internal/security"
)

// memStore is an in-memory ProfileStore and SessionStore with the same matching rules as Mongo.
type memStore struct {
	mu       sync.Mutex
	byID     map[primitive.ObjectID]*domain.Principal
	order    []primitive.ObjectID
	refresh  map[string]*repo.RefreshToken
	resets   map[string]*repo.EmailToken
	pingErr  error
	appendFn func() error
}

func newMemStore() *memStore {
	return &memStore{
		byID:    map[primitive.ObjectID]*domain.Principal{},
		refresh: map[string]*repo.RefreshToken{},
		resets:  map[string]*repo.EmailToken{},
	}
}

func clone(p *domain.Principal) *domain.Principal {
	cp := *p
	v := reflect.ValueOf(&cp).Elem()
	for _, c := range domain.Collections {
		f := collField(v, c)
		n := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
		reflect.Copy(n, f)
		f.Set(n)
	}
	if p.ProfilePicture != nil {
		img := *p.ProfilePicture
		cp.ProfilePicture = &img
	}
	return &cp
}

func collField(v reflect.Value, coll domain.Collection) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.Split(t.Field(i).Tag.Get("bson"), ",")[0] == string(coll) {
			return v.Field(i)
		}
	}
	panic("no collection " + string(coll))
}

func (m *memStore) CreatePrincipal(_ context.Context, p *domain.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Email = domain.NormalizeEmail(p.Email)
	for _, q := range m.byID {
		if q.Email == p.Email {
			return repo.ErrDuplicate
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	p.EnsureCollections()
	m.byID[p.ID] = clone(p)
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memStore) FindPrincipalByEmail(_ context.Context, email string) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, p := range m.byID {
		if p.Email == email {
			return clone(p), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindPrincipalByID(_ context.Context, id primitive.ObjectID) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return clone(p), nil
	}
	return nil, nil
}

func (m *memStore) GetShowcase(ctx context.Context, email string) (*domain.Principal, error) {
	if email != "" {
		return m.FindPrincipalByEmail(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if p := m.byID[id]; p.Role == domain.RoleAdmin {
			return clone(p), nil
		}
	}
	return nil, nil
}

func (m *memStore) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.PasswordHash = hash
	return nil
}

func (m *memStore) UpdateProfile(_ context.Context, id primitive.ObjectID, u domain.ProfileUpdate) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if u.Email != nil {
		e := domain.NormalizeEmail(*u.Email)
		for qid, q := range m.byID {
			if qid != id && q.Email == e {
				return nil, repo.ErrDuplicate
			}
		}
		p.Email = e
	}
	if u.Password != nil {
		hash, err := security.HashPassword(*u.Password)
		if err != nil {
			return nil, err
		}
		p.PasswordHash = hash
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Summary != nil {
		p.Summary = *u.Summary
	}
	if u.Contact != nil {
		p.Contact = *u.Contact
	}
	return clone(p), nil
}

func (m *memStore) SetProfilePicture(_ context.Context, id primitive.ObjectID, img domain.Image) (*domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	prev := p.ProfilePicture
	p.ProfilePicture = &img
	return prev, nil
}

func (m *memStore) AppendItem(_ context.Context, id primitive.ObjectID, coll domain.Collection, item domain.Item) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendFn != nil {
		if err := m.appendFn(); err != nil {
			return nil, err
		}
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	item.SetItemID(primitive.NewObjectID())
	f := collField(reflect.ValueOf(p).Elem(), coll)
	f.Set(reflect.Append(f, reflect.ValueOf(item).Elem()))
	return clone(p), nil
}

func (m *memStore) indexOf(p *domain.Principal, coll domain.Collection, itemID primitive.ObjectID) (reflect.Value, int) {
	f := collField(reflect.ValueOf(p).Elem(), coll)
	for i := 0; i < f.Len(); i++ {
		if f.Index(i).Addr().Interface().(domain.Item).ItemID() == itemID {
			return f, i
		}
	}
	return f, -1
}

func (m *memStore) UpdateItem(_ context.Context, id primitive.ObjectID, coll domain.Collection, itemID primitive.ObjectID, item domain.Item) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	f, i := m.indexOf(p, coll, itemID)
	if i < 0 {
		return nil, repo.ErrNotFound
	}
	item.SetItemID(itemID)
	f.Index(i).Set(reflect.ValueOf(item).Elem())
	return clone(p), nil
}

func (m *memStore) RemoveItem(_ context.Context, id primitive.ObjectID, coll domain.Collection, itemID primitive.ObjectID) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	f, i := m.indexOf(p, coll, itemID)
	if i < 0 {
		return nil, repo.ErrNotFound
	}
	n := reflect.MakeSlice(f.Type(), 0, f.Len()-1)
	n = reflect.AppendSlice(n, f.Slice(0, i))
	n = reflect.AppendSlice(n, f.Slice(i+1, f.Len()))
	f.Set(n)
	return clone(p), nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) SaveRefresh(_ context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[plain] = &repo.RefreshToken{UserID: userID, ExpiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memStore) ConsumeRefresh(_ context.Context, plain string) (*repo.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.refresh[plain]
	if !ok || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		return nil, nil
	}
	rt.Revoked = true
	out := *rt
	return &out, nil
}

func (m *memStore) RevokeRefresh(_ context.Context, plain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.refresh[plain]; ok {
		rt.Revoked = true
	}
	return nil
}

func (m *memStore) RevokeAllRefresh(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.refresh {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (m *memStore) CreateEmailToken(_ context.Context, userID primitive.ObjectID, plain, purpose string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[plain] = &repo.EmailToken{UserID: userID, Purpose: purpose, ExpiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memStore) UseEmailToken(_ context.Context, plain, purpose string) (*repo.EmailToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	et, ok := m.resets[plain]
	if !ok || et.Purpose != purpose || et.UsedAt != nil || time.Now().After(et.ExpiresAt) {
		return nil, repo.ErrNotFound
	}
	now := time.Now()
	et.UsedAt = &now
	out := *et
	return &out, nil
}

type resetMail struct{ To, Token string }

type fakeMail struct {
	mu       sync.Mutex
	contacts []domain.ContactMessage
	resets   []resetMail
	err      error
}

func (f *fakeMail) SendContact(_ context.Context, m domain.ContactMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.contacts = append(f.contacts, m)
	return nil
}

func (f *fakeMail) SendPasswordReset(_ context.Context, to, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, resetMail{To: to, Token: token})
	return nil
}

type fakeImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func newFakeImages() *fakeImages { return &fakeImages{objects: map[string][]byte{}} }

func (f *fakeImages) Upload(_ context.Context, owner, filename, contentType string, r io.Reader, size int64) (*domain.Image, error) {
	if err := media.CheckUpload(contentType, size); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := owner + "/" + primitive.NewObjectID().Hex() + "-" + filename
	f.objects[key] = b
	return &domain.Image{ID: key, URL: "https://img.test/" + key, ContentType: contentType, Size: size}, nil
}

func (f *fakeImages) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[id]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeImages) URL(_ context.Context, id string) (string, error) {
	return "https://img.test/" + id + "?fresh", nil
}

type published struct {
	Key   string
	Event any
}

type fakePub struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePub) Publish(_ context.Context, key string, event any, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{Key: key, Event: event})
	return nil
}

func (f *fakePub) Close() error { return nil }

func (f *fakePub) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Key)
	}
	return out
}
