package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
	filesrepo "github.com/dmitrijs2005/mycloud/internal/server/repositories/files"
	sessionsrepo "github.com/dmitrijs2005/mycloud/internal/server/repositories/sessions"
	usersrepo "github.com/dmitrijs2005/mycloud/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- in-memory users repository ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*models.User // by id

	applyDeltaErr error
	deleteErr     error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == user.Login {
			return nil, common.ErrorConflict
		}
	}
	f.seq++
	user.ID = fmt.Sprintf("u%d", f.seq)
	user.CreatedAt = time.Now().UTC()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.User
	for _, u := range f.users {
		c := *u
		result = append(result, &c)
	}
	return result, nil
}

func (f *fakeUsersRepo) UpdateInfo(ctx context.Context, id, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Name, u.Email = name, email
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUsersRepo) SetAdmin(ctx context.Context, id string, admin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Admin = admin
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsersRepo) LockByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeUsersRepo) ApplyStorageDelta(ctx context.Context, id string, delta int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyDeltaErr != nil {
		return 0, false, f.applyDeltaErr
	}
	u, ok := f.users[id]
	if !ok {
		return 0, false, common.ErrorNotFound
	}
	next := u.StorageSize + delta
	clamped := next < 0
	if clamped {
		next = 0
	}
	u.StorageSize = next
	return next, clamped, nil
}

// --- in-memory files repository ---

type fakeFilesRepo struct {
	mu    sync.Mutex
	seq   int
	files map[string]*models.File // by id

	createErr       error
	createConflicts int // fail the first N creates with ErrorConflict
	existsErr       error
	deleteErr       error
	lastDownloadErr error
	commentErr      error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{files: map[string]*models.File{}}
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createConflicts > 0 {
		f.createConflicts--
		return nil, common.ErrorConflict
	}
	for _, existing := range f.files {
		if existing.UserID == file.UserID && existing.StoredPath == file.StoredPath {
			return nil, common.ErrorConflict
		}
	}
	f.seq++
	file.ID = fmt.Sprintf("f%d", f.seq)
	file.CreatedAt = time.Now().UTC()
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *file
	return &c, nil
}

func (f *fakeFilesRepo) GetByLink(ctx context.Context, link string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link == "" {
		return nil, common.ErrorNotFound
	}
	for _, file := range f.files {
		if file.Link == link {
			c := *file
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.File
	for _, file := range f.files {
		if file.UserID == userID {
			c := *file
			result = append(result, &c)
		}
	}
	return result, nil
}

func (f *fakeFilesRepo) ExistsStoredPath(ctx context.Context, userID, storedPath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, file := range f.files {
		if file.UserID == userID && file.StoredPath == storedPath {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFilesRepo) Rename(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	file.Name = name
	return nil
}

func (f *fakeFilesRepo) UpdateComment(ctx context.Context, id, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	file, ok := f.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	file.Comment = comment
	return nil
}

func (f *fakeFilesRepo) SetLink(ctx context.Context, id, link string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	if file.Link != "" {
		return false, nil
	}
	file.Link = link
	return true, nil
}

func (f *fakeFilesRepo) SetLastDownload(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastDownloadErr != nil {
		return f.lastDownloadErr
	}
	file, ok := f.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	file.LastDownloadAt = &at
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.files[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.files, id)
	return nil
}

// --- in-memory sessions repository ---

type fakeSessionsRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session // by login
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{sessions: map[string]*models.Session{}}
}

func (f *fakeSessionsRepo) Create(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.Login]; ok {
		return common.ErrorConflict
	}
	session.CreatedAt = time.Now().UTC()
	c := *session
	f.sessions[session.Login] = &c
	return nil
}

func (f *fakeSessionsRepo) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			c := *s
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSessionsRepo) FindByLogin(ctx context.Context, login string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeSessionsRepo) DeleteByLogin(ctx context.Context, login string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[login]; !ok {
		return false, nil
	}
	delete(f.sessions, login)
	return true, nil
}

// --- repository manager over the fakes ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	f *fakeFilesRepo
	s *fakeSessionsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		f: newFakeFilesRepo(),
		s: newFakeSessionsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository       { return m.f }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.s }

// --- in-memory blob storage ---

type fakeBlobStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte

	writeErr  error
	existsErr error
	openErr   error
	deleteErr error
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{blobs: map[string][]byte{}}
}

func (f *fakeBlobStorage) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.blobs[key]
	return ok, nil
}

func (f *fakeBlobStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	data, ok := f.blobs[key]
	if !ok {
		return nil, fmt.Errorf("no blob under %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStorage) Write(ctx context.Context, key string, r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.blobs, key)
	return nil
}

func (f *fakeBlobStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []string
	for k := range f.blobs {
		result = append(result, k)
	}
	return result
}

// --- deterministic password hasher ---

type fakeHasher struct {
	mu      sync.Mutex
	verifys []string // digests passed to Verify, in order
}

func (f *fakeHasher) Hash(plaintext string) (string, error) {
	return "h:" + plaintext, nil
}

func (f *fakeHasher) Verify(plaintext, digest string) bool {
	f.mu.Lock()
	f.verifys = append(f.verifys, digest)
	f.mu.Unlock()
	return digest == "h:"+plaintext
}

// --- shared fixtures ---

func newFileServiceForTest(t *testing.T, rm *fakeRepoManager, blobs *fakeBlobStorage) (*FileService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	quota := NewQuotaLedger(rm, discardLogger())
	return NewFileService(db, rm, blobs, quota, discardLogger()), mock
}

// fixturePassword is the plaintext matching a mustRegisterUser fixture's
// stored hash under fakeHasher.
func fixturePassword(login string) string { return login + "Pass1" }

func mustRegisterUser(t *testing.T, rm *fakeRepoManager, login string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		Name:         login,
		Login:        login,
		PasswordHash: "h:" + fixturePassword(login),
		Email:        login + "@example.com",
		Admin:        admin,
	}
	if _, err := rm.u.Create(context.Background(), user); err != nil {
		t.Fatalf("fixture user %s: %v", login, err)
	}
	return user
}
