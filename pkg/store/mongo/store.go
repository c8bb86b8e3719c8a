package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/identd/mongoauth/internal/logger"
	"github.com/identd/mongoauth/internal/telemetry"
	"github.com/identd/mongoauth/pkg/identity"
	"github.com/identd/mongoauth/pkg/store"
)

// Document field names.
const (
	fieldID           = "_id"
	fieldUsername     = "username"
	fieldPasswordHash = "passwordHash"
	fieldGroupName    = "name"
	fieldMembers      = "members"
)

// Server write error codes raised when an update operator hits a field
// of the wrong BSON type, as with $addToSet or $pull on a member list
// that is not an array.
const (
	codeBadValue     = 2
	codeTypeMismatch = 14
)

// isNonArrayMembers reports whether a write failed because the targeted
// member list holds a non-array value. Any other write failure must
// surface to the caller.
func isNonArrayMembers(err error) bool {
	var we driver.WriteException
	if !errors.As(err, &we) {
		return false
	}
	for _, e := range we.WriteErrors {
		if e.Code == codeBadValue || e.Code == codeTypeMismatch {
			return true
		}
	}
	return false
}

// Store resolves users and groups from MongoDB collections. Client
// handles are acquired per operation from the shared cache, so an idle
// deployment holds no connections once the cache TTL elapses.
type Store struct {
	cfg   store.Config
	cache *ClientCache
}

// New creates a Store over the given cache. The cache is shared and
// stays open after the store is closed.
func New(cfg store.Config, cache *ClientCache) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, fmt.Errorf("mongo store: nil client cache")
	}
	return &Store{cfg: cfg, cache: cache}, nil
}

// Factory adapts a shared client cache into a store.Factory for
// registry wiring.
func Factory(cache *ClientCache) store.Factory {
	return func(_ context.Context, cfg store.Config) (identity.Store, error) {
		return New(cfg, cache)
	}
}

func (s *Store) collection(ctx context.Context, name string) (*driver.Collection, error) {
	client, err := s.cache.Acquire(ctx, s.cfg.URL)
	if err != nil {
		return nil, err
	}
	return client.Database(s.cfg.Database).Collection(name), nil
}

func (s *Store) users(ctx context.Context) (*driver.Collection, error) {
	return s.collection(ctx, s.cfg.UserCollection)
}

func (s *Store) groups(ctx context.Context) (*driver.Collection, error) {
	return s.collection(ctx, s.cfg.GroupCollection)
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, identity.ErrBackend, err)
}

// FindUser returns the user document for the username, projecting the
// stored password and the configured additional attributes. The _id
// field is never resolved. Attributes absent from the document, or
// present with a non-string value, are left out of Properties.
func (s *Store) FindUser(ctx context.Context, username string) (*identity.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", identity.ErrInvalidArgument)
	}

	ctx, span := telemetry.StartStoreSpan(ctx, "find_user",
		telemetry.Username(username),
		telemetry.Collection(s.cfg.UserCollection))
	defer span.End()

	coll, err := s.users(ctx)
	if err != nil {
		return nil, err
	}

	proj := bson.D{
		{Key: fieldID, Value: 0},
		{Key: fieldUsername, Value: 1},
		{Key: fieldPasswordHash, Value: 1},
	}
	for _, attr := range s.cfg.UserAttributes {
		proj = append(proj, bson.E{Key: attr, Value: 1})
	}

	var doc bson.M
	err = coll.FindOne(ctx,
		bson.M{fieldUsername: username},
		options.FindOne().SetProjection(proj),
	).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %q", identity.ErrNoSuchUser, username)
	}
	if err != nil {
		return nil, backendErr("find user", err)
	}

	user := &identity.User{Username: username}
	if v, ok := doc[fieldPasswordHash].(string); ok {
		user.PasswordHash = v
	}

	props := make(map[string]string)
	for _, attr := range s.cfg.UserAttributes {
		if v, ok := doc[attr].(string); ok {
			props[attr] = v
		}
	}
	if len(props) > 0 {
		user.Properties = props
	}

	return user, nil
}

// ListUserNames returns the username of every user document. Documents
// without a string username field are skipped.
func (s *Store) ListUserNames(ctx context.Context) ([]string, error) {
	coll, err := s.users(ctx)
	if err != nil {
		return nil, err
	}

	proj := bson.D{
		{Key: fieldID, Value: 0},
		{Key: fieldUsername, Value: 1},
	}
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetProjection(proj))
	if err != nil {
		return nil, backendErr("list users", err)
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var doc struct {
			Username string `bson:"username"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, backendErr("list users", err)
		}
		if doc.Username != "" {
			names = append(names, doc.Username)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, backendErr("list users", err)
	}

	return names, nil
}

// FindGroupsContainingUser returns the name of every group whose
// member list contains the username. A user with no memberships yields
// an empty result, not an error.
func (s *Store) FindGroupsContainingUser(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", identity.ErrInvalidArgument)
	}

	ctx, span := telemetry.StartStoreSpan(ctx, "find_groups",
		telemetry.Username(username),
		telemetry.Collection(s.cfg.GroupCollection))
	defer span.End()

	coll, err := s.groups(ctx)
	if err != nil {
		return nil, err
	}

	proj := bson.D{
		{Key: fieldID, Value: 0},
		{Key: fieldGroupName, Value: 1},
	}
	cur, err := coll.Find(ctx,
		bson.M{fieldMembers: username},
		options.Find().SetProjection(proj),
	)
	if err != nil {
		return nil, backendErr("find groups", err)
	}
	defer cur.Close(ctx)

	var groups []string
	for cur.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, backendErr("find groups", err)
		}
		if doc.Name != "" {
			groups = append(groups, doc.Name)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, backendErr("find groups", err)
	}

	return groups, nil
}

// InsertUser creates the user document if absent and reconciles the
// memberships named in user.Groups. If the document already exists its
// credentials and attributes are left untouched; group reconciliation
// still runs, so inserting an existing user can grant new memberships.
func (s *Store) InsertUser(ctx context.Context, user *identity.User) error {
	if user == nil {
		return fmt.Errorf("%w: nil user", identity.ErrInvalidArgument)
	}
	if err := user.Validate(); err != nil {
		return err
	}

	coll, err := s.users(ctx)
	if err != nil {
		return err
	}

	onInsert := bson.M{fieldPasswordHash: user.PasswordHash}
	for k, v := range user.Properties {
		onInsert[k] = v
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{fieldUsername: user.Username},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return backendErr("insert user", err)
	}
	if res.UpsertedCount == 0 {
		logger.DebugCtx(ctx, "user already exists, credentials unchanged",
			logger.Username(user.Username))
	}

	return s.reconcileGroups(ctx, user)
}

// UpdateUser replaces the stored password and attributes for the user,
// creating the document if absent, then reconciles the memberships in
// user.Groups additively. Memberships not named are left in place.
func (s *Store) UpdateUser(ctx context.Context, user *identity.User) error {
	if user == nil {
		return fmt.Errorf("%w: nil user", identity.ErrInvalidArgument)
	}
	if err := user.Validate(); err != nil {
		return err
	}

	coll, err := s.users(ctx)
	if err != nil {
		return err
	}

	set := bson.M{fieldPasswordHash: user.PasswordHash}
	for k, v := range user.Properties {
		set[k] = v
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{fieldUsername: user.Username},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return backendErr("update user", err)
	}

	return s.reconcileGroups(ctx, user)
}

// DeleteUser removes all documents for the username and scrubs it from
// every group's member list. Deleting an absent user succeeds.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", identity.ErrInvalidArgument)
	}

	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	if _, err := users.DeleteMany(ctx, bson.M{fieldUsername: username}); err != nil {
		return backendErr("delete user", err)
	}

	groups, err := s.groups(ctx)
	if err != nil {
		return err
	}
	_, err = groups.UpdateMany(ctx,
		bson.M{fieldMembers: username},
		bson.M{"$pull": bson.M{fieldMembers: username}},
	)
	if err != nil {
		if isNonArrayMembers(err) {
			// A group document with a non-array member list cannot be
			// scrubbed; leave it and report the rest.
			logger.WarnCtx(ctx, "skipping group with malformed member list",
				logger.Username(username),
				logger.Err(err))
			return nil
		}
		return backendErr("scrub group memberships", err)
	}

	return nil
}

// AddUserToGroup adds the user to the named group, creating the group
// document if absent. The user must exist. Adding an existing member
// is a no-op.
func (s *Store) AddUserToGroup(ctx context.Context, username, group string) error {
	if err := s.requireUser(ctx, username); err != nil {
		return err
	}
	if group == "" {
		return fmt.Errorf("%w: group name is empty", identity.ErrInvalidArgument)
	}

	coll, err := s.groups(ctx)
	if err != nil {
		return err
	}
	return s.addMember(ctx, coll, group, username)
}

// RemoveUserFromGroup removes the user from the named group. The user
// must exist; removing a non-member or naming an absent group is a
// no-op.
func (s *Store) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	if err := s.requireUser(ctx, username); err != nil {
		return err
	}
	if group == "" {
		return fmt.Errorf("%w: group name is empty", identity.ErrInvalidArgument)
	}

	coll, err := s.groups(ctx)
	if err != nil {
		return err
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{fieldGroupName: group},
		bson.M{"$pull": bson.M{fieldMembers: username}},
	)
	if err != nil {
		if isNonArrayMembers(err) {
			logger.WarnCtx(ctx, "skipping group with malformed member list",
				logger.Group(group),
				logger.Username(username),
				logger.Err(err))
			return nil
		}
		return backendErr("remove member", err)
	}

	return nil
}

// Ping verifies the backend is reachable through a cached client.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := telemetry.StartStoreSpan(ctx, "ping",
		telemetry.Descriptor(s.cfg.URL))
	defer span.End()

	client, err := s.cache.Acquire(ctx, s.cfg.URL)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return backendErr("ping", err)
	}
	return nil
}

// Close is a no-op: client handles are owned by the shared cache and
// released by its TTL sweeper or by Cache.Shutdown.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

// requireUser fails with ErrNoSuchUser unless a user document exists.
func (s *Store) requireUser(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", identity.ErrInvalidArgument)
	}

	coll, err := s.users(ctx)
	if err != nil {
		return err
	}

	n, err := coll.CountDocuments(ctx,
		bson.M{fieldUsername: username},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return backendErr("check user", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", identity.ErrNoSuchUser, username)
	}
	return nil
}

// reconcileGroups grants each membership named on the record. Removal
// of memberships not named is deliberately not performed here; use
// RemoveUserFromGroup for that.
func (s *Store) reconcileGroups(ctx context.Context, user *identity.User) error {
	if len(user.Groups) == 0 {
		return nil
	}

	coll, err := s.groups(ctx)
	if err != nil {
		return err
	}
	for _, g := range user.Groups {
		if err := s.addMember(ctx, coll, g, user.Username); err != nil {
			return err
		}
	}
	return nil
}

// addMember adds the username to the group's member list, creating the
// group document if absent. A group document whose member list holds a
// non-array value is logged and skipped rather than failing the whole
// operation.
func (s *Store) addMember(ctx context.Context, coll *driver.Collection, group, username string) error {
	_, err := coll.UpdateOne(ctx,
		bson.M{fieldGroupName: group},
		bson.M{"$addToSet": bson.M{fieldMembers: username}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if isNonArrayMembers(err) {
			logger.WarnCtx(ctx, "skipping group with malformed member list",
				logger.Group(group),
				logger.Username(username),
				logger.Err(err))
			return nil
		}
		return backendErr("add member", err)
	}
	return nil
}
