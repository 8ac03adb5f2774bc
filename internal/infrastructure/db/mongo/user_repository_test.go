package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/relaychat/relay-api/internal/core/domain"
)

func decodeUser(t *testing.T, doc bson.M) *domain.User {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var mu mongoUser
	if err := bson.Unmarshal(raw, &mu); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return mu.toDomain()
}

func TestMongoUser_ToDomain(t *testing.T) {
	u := decodeUser(t, bson.M{"username": "alice", "password": []byte("hash"), "role": "admin", "created_at": int64(1700000000)})

	if u.Username != "alice" || string(u.PasswordHash) != "hash" || u.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CreatedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected created_at: %s", u.CreatedAt)
	}
}

func TestMongoUser_CorruptedRoleDecodesAsInvalid(t *testing.T) {
	for name, role := range map[string]any{
		"int":     7,
		"bool":    true,
		"missing": nil,
		"unknown": "superuser",
	} {
		doc := bson.M{"username": "eve", "password": []byte("hash")}
		if role != nil {
			doc["role"] = role
		}

		u := decodeUser(t, doc)
		if u.Username != "eve" {
			t.Fatalf("%s: record not decoded: %+v", name, u)
		}
		if u.Role.Valid() {
			t.Fatalf("%s: corrupted role %v decoded as valid %q", name, role, u.Role)
		}
	}
}
