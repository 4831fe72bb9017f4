package chat

// roomKeyDelimiter separates the two participant ids inside a room key.
// User ids are uuid/hex strings, so ":" can never appear in a valid id.
const roomKeyDelimiter = ":"

// RoomKey derives the canonical realtime-subscription address for a pair
// of users. The ids are sorted lexicographically before joining, so
// RoomKey(a, b) == RoomKey(b, a) regardless of which side initiates.
//
// The key addresses an in-memory room only; it is independent of the
// conversation's storage id.
func RoomKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + roomKeyDelimiter + userB
}
