package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

const (
	KeyAddr      = "addr"
	KeyPassword  = "password"
	KeyDB        = "db"
	KeyKeyPrefix = "key_prefix"
)

// RedisDefaults returns the default configuration for the Redis directory.
func RedisDefaults() map[string]string {
	return map[string]string{
		KeyAddr:      "localhost:6379",
		KeyPassword:  "",
		KeyDB:        "0",
		KeyKeyPrefix: "streamgate:",
	}
}

// Redis is a directory backed by Redis sets: one set per actor holding
// group ids, plus one set of open group ids.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis directory from a configuration map.
func NewRedis(config map[string]string) (*Redis, error) {
	config = storage.MergeConfig(RedisDefaults(), config)

	addr := storage.GetString(config, KeyAddr, "")
	if addr == "" {
		return nil, storage.NewConfigError("redis", KeyAddr, "cannot be empty")
	}
	db, err := storage.GetInt(config, KeyDB, 0)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], err.Error())
	}
	if db < 0 {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], "must be non-negative")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: storage.GetString(config, KeyPassword, ""),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, storage.NewConfigErrorWithCause("redis", KeyAddr, "failed to connect", err)
	}

	slog.Info("redis directory initialized", "addr", addr, "db", db)
	return &Redis{client: client, prefix: storage.GetString(config, KeyKeyPrefix, "streamgate:")}, nil
}

func (r *Redis) actorKey(actorID int64) string {
	return r.prefix + "groups:actor:" + strconv.FormatInt(actorID, 10)
}

func (r *Redis) openKey() string {
	return r.prefix + "groups:open"
}

func (r *Redis) GroupsFor(ctx context.Context, actorID int64) (visibility.GroupSet, error) {
	members, err := r.client.SMembers(ctx, r.actorKey(actorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis groups for actor %d: %w", actorID, err)
	}
	return parseGroupSet(members)
}

func (r *Redis) OpenGroups(ctx context.Context) (visibility.GroupSet, error) {
	members, err := r.client.SMembers(ctx, r.openKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis open groups: %w", err)
	}
	return parseGroupSet(members)
}

func (r *Redis) AddMember(ctx context.Context, groupID, actorID int64) error {
	if err := r.client.SAdd(ctx, r.actorKey(actorID), groupID).Err(); err != nil {
		return fmt.Errorf("redis add member: %w", err)
	}
	return nil
}

func (r *Redis) RemoveMember(ctx context.Context, groupID, actorID int64) error {
	if err := r.client.SRem(ctx, r.actorKey(actorID), groupID).Err(); err != nil {
		return fmt.Errorf("redis remove member: %w", err)
	}
	return nil
}

func (r *Redis) SetOpen(ctx context.Context, groupID int64, open bool) error {
	var err error
	if open {
		err = r.client.SAdd(ctx, r.openKey(), groupID).Err()
	} else {
		err = r.client.SRem(ctx, r.openKey(), groupID).Err()
	}
	if err != nil {
		return fmt.Errorf("redis set open: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func parseGroupSet(members []string) (visibility.GroupSet, error) {
	set := make(visibility.GroupSet, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed group id %q: %w", m, err)
		}
		set[id] = struct{}{}
	}
	return set, nil
}
