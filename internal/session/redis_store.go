package session

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onairos/onairos-go/pkg/api"
)

// RedisStore is a Store backed by Redis, for server-side hosts that embed
// the SDK (bots, support tooling, integration harnesses). It uses a simple
// key structure:
//
//	<prefix>creds                => gob-encoded credsPayload
//	<prefix>conn:<platform>      => gob-encoded connPayload
//	<prefix>connidx              => SET of connected platform names
//	<prefix>pin                  => the stored PIN
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

type credsPayload struct {
	Username    string
	Email       string
	BearerToken string
	TokenExpiry int64
}

type connPayload struct {
	Platform    string
	AccessToken string
	AuthCode    string
	ConnectedAt int64
}

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "onairos:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "onairos:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keyCreds() string                     { return s.prefix + "creds" }
func (s *RedisStore) keyConn(platform api.Platform) string { return s.prefix + "conn:" + string(platform) }
func (s *RedisStore) keyConnIndex() string                 { return s.prefix + "connidx" }
func (s *RedisStore) keyPIN() string                       { return s.prefix + "pin" }

func encodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePayload(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *RedisStore) Credentials(ctx context.Context) (Credentials, bool, error) {
	data, err := s.client.Get(ctx, s.keyCreds()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, err
	}

	var p credsPayload
	if err := decodePayload(data, &p); err != nil {
		return Credentials{}, false, err
	}
	creds := Credentials{
		Username:    p.Username,
		Email:       p.Email,
		BearerToken: p.BearerToken,
	}
	if p.TokenExpiry != 0 {
		creds.TokenExpiry = time.Unix(p.TokenExpiry, 0)
	}
	return creds, true, nil
}

func (s *RedisStore) SaveCredentials(ctx context.Context, creds Credentials) error {
	p := credsPayload{
		Username:    creds.Username,
		Email:       creds.Email,
		BearerToken: creds.BearerToken,
	}
	if !creds.TokenExpiry.IsZero() {
		p.TokenExpiry = creds.TokenExpiry.Unix()
	}
	data, err := encodePayload(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyCreds(), data, 0).Err()
}

func (s *RedisStore) ClearCredentials(ctx context.Context) error {
	return s.client.Del(ctx, s.keyCreds()).Err()
}

func (s *RedisStore) Connections(ctx context.Context) ([]api.PlatformConnection, error) {
	names, err := s.client.SMembers(ctx, s.keyConnIndex()).Result()
	if err != nil {
		return nil, err
	}

	var out []api.PlatformConnection
	for _, name := range names {
		data, err := s.client.Get(ctx, s.keyConn(api.Platform(name))).Bytes()
		if errors.Is(err, redis.Nil) {
			// Index ahead of a deleted record; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		var p connPayload
		if err := decodePayload(data, &p); err != nil {
			return nil, err
		}
		out = append(out, api.PlatformConnection{
			Platform:    api.Platform(p.Platform),
			AccessToken: p.AccessToken,
			AuthCode:    p.AuthCode,
			ConnectedAt: time.Unix(p.ConnectedAt, 0),
		})
	}
	return out, nil
}

func (s *RedisStore) Connect(ctx context.Context, conn api.PlatformConnection) error {
	data, err := encodePayload(connPayload{
		Platform:    string(conn.Platform),
		AccessToken: conn.AccessToken,
		AuthCode:    conn.AuthCode,
		ConnectedAt: conn.ConnectedAt.Unix(),
	})
	if err != nil {
		return err
	}

	// Record and index in one transaction so membership and credential
	// existence stay in lockstep.
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyConn(conn.Platform), data, 0)
		pipe.SAdd(ctx, s.keyConnIndex(), string(conn.Platform))
		return nil
	})
	return err
}

func (s *RedisStore) Disconnect(ctx context.Context, platform api.Platform) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keyConn(platform))
		pipe.SRem(ctx, s.keyConnIndex(), string(platform))
		return nil
	})
	return err
}

func (s *RedisStore) StorePIN(ctx context.Context, pin string) error {
	return s.client.Set(ctx, s.keyPIN(), pin, 0).Err()
}

func (s *RedisStore) LoadPIN(ctx context.Context) (string, bool, error) {
	pin, err := s.client.Get(ctx, s.keyPIN()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pin, true, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	names, err := s.client.SMembers(ctx, s.keyConnIndex()).Result()
	if err != nil {
		return err
	}

	keys := []string{s.keyCreds(), s.keyConnIndex(), s.keyPIN()}
	for _, name := range names {
		keys = append(keys, s.keyConn(api.Platform(name)))
	}
	return s.client.Del(ctx, keys...).Err()
}
