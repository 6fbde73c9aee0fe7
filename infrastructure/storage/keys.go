// Package storage persists users, friendships, events, acknowledgments
// and score buckets in BadgerDB.
//
// Key layout (zero-padded ids keep iteration order numeric):
//
//	user:id:<user>            user record
//	user:email:<email>        user id, unique-email index
//	friend:<user>:<friend>    one direction of a mutual friendship
//	event:<event>             event record
//	ack:<event>:<user>        acknowledgment record
//	bucket:<creator>:<friend>:<event>   per-event score bucket
//	total:<creator>:<friend>            lifetime-total score bucket
package storage

import (
	"bytes"
	"fmt"
	"strconv"

	"pulse-lab/domain"
)

func eventKeySuffix(event domain.EventID) string {
	return fmt.Sprintf(":%020d", event)
}

func hasSuffix(key, suffix []byte) bool {
	return bytes.HasSuffix(key, suffix)
}

// parseMiddleID reads the friend id out of a bucket:<creator>:<friend>:<event> key.
func parseMiddleID(key []byte) (int64, error) {
	parts := bytes.Split(key, []byte(":"))
	if len(parts) != 4 {
		return 0, fmt.Errorf("malformed bucket key %q", key)
	}
	return strconv.ParseInt(string(parts[2]), 10, 64)
}

// parseTrailingID reads the zero-padded id in the last key segment.
func parseTrailingID(key []byte) (int64, error) {
	idx := bytes.LastIndexByte(key, ':')
	if idx < 0 || idx+1 >= len(key) {
		return 0, fmt.Errorf("malformed key %q", key)
	}
	return strconv.ParseInt(string(key[idx+1:]), 10, 64)
}

func userKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("user:id:%020d", id))
}

func userEmailKey(email string) []byte {
	return []byte("user:email:" + email)
}

func friendKey(user, friend domain.UserID) []byte {
	return []byte(fmt.Sprintf("friend:%020d:%020d", user, friend))
}

func friendPrefix(user domain.UserID) []byte {
	return []byte(fmt.Sprintf("friend:%020d:", user))
}

func eventKey(id domain.EventID) []byte {
	return []byte(fmt.Sprintf("event:%020d", id))
}

func ackKey(event domain.EventID, user domain.UserID) []byte {
	return []byte(fmt.Sprintf("ack:%020d:%020d", event, user))
}

func ackPrefix(event domain.EventID) []byte {
	return []byte(fmt.Sprintf("ack:%020d:", event))
}

func bucketKey(creator, friend domain.UserID, event domain.EventID) []byte {
	return []byte(fmt.Sprintf("bucket:%020d:%020d:%020d", creator, friend, event))
}

func bucketPairPrefix(creator, friend domain.UserID) []byte {
	return []byte(fmt.Sprintf("bucket:%020d:%020d:", creator, friend))
}

func bucketCreatorPrefix(creator domain.UserID) []byte {
	return []byte(fmt.Sprintf("bucket:%020d:", creator))
}

func totalKey(creator, friend domain.UserID) []byte {
	return []byte(fmt.Sprintf("total:%020d:%020d", creator, friend))
}

func totalPrefix(creator domain.UserID) []byte {
	return []byte(fmt.Sprintf("total:%020d:", creator))
}
