package staffauth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	verificationKeyPrefix       = "sev"
	verificationRecordVersionV1 = 1
)

var (
	errVerificationNotFound         = errors.New("verification record not found")
	errVerificationSecretMismatch   = errors.New("verification secret mismatch")
	errVerificationAttemptsExceeded = errors.New("verification attempts exceeded")
	errVerificationRedisUnavailable = errors.New("verification redis unavailable")
)

type emailVerificationRecord struct {
	CredentialID string
	SecretHash   [32]byte
	ExpiresAt    int64
	CreatedAt    int64
	Attempts     uint16
}

type emailVerificationStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newEmailVerificationStore(redisClient redis.UniversalClient) *emailVerificationStore {
	return &emailVerificationStore{
		redis:  redisClient,
		prefix: verificationKeyPrefix,
	}
}

func (s *emailVerificationStore) key(verificationID string) string {
	return s.prefix + ":" + verificationID
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *emailVerificationStore) Save(ctx context.Context, verificationID string, record *emailVerificationRecord, ttl time.Duration) error {
	encoded, err := encodeEmailVerificationRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(verificationID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errVerificationRedisUnavailable, err)
	}

	return nil
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *emailVerificationStore) Consume(
	ctx context.Context,
	verificationID string,
	providedHash [32]byte,
	maxAttempts int,
) (*emailVerificationRecord, error) {
	const maxRetries = 4
	key := s.key(verificationID)

	for i := 0; i < maxRetries; i++ {
		var matched *emailVerificationRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeEmailVerificationRecord(data)
			if err != nil {
				return err
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if time.Now().Unix() >= record.ExpiresAt || ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errVerificationNotFound
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				record.Attempts++
				burned := int(record.Attempts) >= maxAttempts

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					if burned {
						pipe.Del(ctx, key)
						return nil
					}
					updated, encErr := encodeEmailVerificationRecord(record)
					if encErr != nil {
						return encErr
					}
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				if burned {
					return errVerificationAttemptsExceeded
				}
				return errVerificationSecretMismatch
			}

			// Verification challenges are strictly one-shot; delete on match.
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, errVerificationNotFound), errors.Is(err, errVerificationSecretMismatch), errors.Is(err, errVerificationAttemptsExceeded):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", errVerificationRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, errVerificationNotFound
}

func encodeEmailVerificationRecord(record *emailVerificationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	if len(record.CredentialID) > 65535 {
		return nil, errors.New("verification record credential id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.CredentialID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.CredentialID)
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeEmailVerificationRecord(data []byte) (*emailVerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	record := &emailVerificationRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	var credIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &credIDLen); err != nil {
		return nil, err
	}

	credID := make([]byte, credIDLen)
	if _, err := io.ReadFull(reader, credID); err != nil {
		return nil, err
	}
	record.CredentialID = string(credID)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
