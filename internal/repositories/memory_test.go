package repositories

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()

	created, err := users.Create(ctx, "Alice", "hashed-secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created user missing id")
	}
	if !rnoPattern.MatchString(created.Rno) {
		t.Fatalf("rno %q does not match %v", created.Rno, rnoPattern)
	}
	if created.Password != "hashed-secret" {
		t.Fatalf("password hash = %q, want stored verbatim", created.Password)
	}

	byID, err := users.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Rno != created.Rno {
		t.Fatalf("find by id rno = %q, want %q", byID.Rno, created.Rno)
	}

	byRno, err := users.FindByRno(ctx, created.Rno)
	if err != nil {
		t.Fatalf("find by rno: %v", err)
	}
	if byRno.ID != created.ID {
		t.Fatalf("find by rno id = %q, want %q", byRno.ID, created.ID)
	}

	if _, err := users.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find unknown id error = %v, want %v", err, ErrNotFound)
	}
	if _, err := users.FindByRno(ctx, "RUD-9999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find unknown rno error = %v, want %v", err, ErrNotFound)
	}
}

func TestMemoryUserRepositoryUniqueRnos(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		user, err := users.Create(ctx, "user", "hash")
		if err != nil {
			t.Fatalf("create user %d: %v", i, err)
		}
		if _, dup := seen[user.Rno]; dup {
			t.Fatalf("duplicate rno issued: %q", user.Rno)
		}
		seen[user.Rno] = struct{}{}
	}
}

func TestMemoryUserRepositoryUpdateName(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()

	created, err := users.Create(ctx, "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	updated, err := users.UpdateName(ctx, created.ID, "Alicia")
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if updated.Name != "Alicia" {
		t.Fatalf("name = %q, want %q", updated.Name, "Alicia")
	}
	if updated.Rno != created.Rno {
		t.Fatalf("rno changed on rename: %q -> %q", created.Rno, updated.Rno)
	}

	if _, err := users.UpdateName(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown id error = %v, want %v", err, ErrNotFound)
	}
}

func TestMemoryFriendRepositoryAdd(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()
	friends := NewMemoryFriendRepository(users)

	alice, err := users.Create(ctx, "Alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := users.Create(ctx, "Bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	ok, err := friends.Add(ctx, alice.ID, bob.Rno)
	if err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if !ok {
		t.Fatal("add friend returned false, want true")
	}

	cases := []struct {
		name      string
		userID    string
		friendRno string
	}{
		{name: "duplicate same orientation", userID: alice.ID, friendRno: bob.Rno},
		{name: "duplicate reverse orientation", userID: bob.ID, friendRno: alice.Rno},
		{name: "self add", userID: alice.ID, friendRno: alice.Rno},
		{name: "unknown rno", userID: alice.ID, friendRno: "RUD-9999999"},
	}
	for _, tc := range cases {
		ok, err := friends.Add(ctx, tc.userID, tc.friendRno)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if ok {
			t.Fatalf("%s: add returned true, want false", tc.name)
		}
	}
}

func TestMemoryFriendRepositorySymmetricListing(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()
	friends := NewMemoryFriendRepository(users)

	alice, _ := users.Create(ctx, "Alice", "hash")
	bob, _ := users.Create(ctx, "Bob", "hash")
	if _, err := friends.Add(ctx, alice.ID, bob.Rno); err != nil {
		t.Fatalf("add friend: %v", err)
	}

	aliceFriends, err := friends.ListFriends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list alice friends: %v", err)
	}
	if len(aliceFriends) != 1 || aliceFriends[0].ID != bob.ID {
		t.Fatalf("alice friends = %+v, want bob", aliceFriends)
	}

	bobFriends, err := friends.ListFriends(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list bob friends: %v", err)
	}
	if len(bobFriends) != 1 || bobFriends[0].ID != alice.ID {
		t.Fatalf("bob friends = %+v, want alice", bobFriends)
	}

	forward, err := friends.Get(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("get forward: %v", err)
	}
	reverse, err := friends.Get(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("get reverse: %v", err)
	}
	if forward.ID != reverse.ID {
		t.Fatalf("orientations resolved different records: %q vs %q", forward.ID, reverse.ID)
	}

	if _, err := friends.Get(ctx, alice.ID, "stranger"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get unknown pair error = %v, want %v", err, ErrNotFound)
	}
}

func TestMemoryFriendRepositoryListsOldestFriendshipFirst(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()
	friends := NewMemoryFriendRepository(users)

	alice, _ := users.Create(ctx, "Alice", "hash")
	bob, _ := users.Create(ctx, "Bob", "hash")
	carol, _ := users.Create(ctx, "Carol", "hash")

	// Carol joined after Bob but is befriended first; the listing
	// follows friendship age, not account age.
	if _, err := friends.Add(ctx, alice.ID, carol.Rno); err != nil {
		t.Fatalf("add carol: %v", err)
	}
	if _, err := friends.Add(ctx, alice.ID, bob.Rno); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	listed, err := friends.ListFriends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("friends = %d, want 2", len(listed))
	}
	if listed[0].ID != carol.ID || listed[1].ID != bob.ID {
		t.Fatalf("friend order = [%s, %s], want [%s, %s]", listed[0].Name, listed[1].Name, carol.Name, bob.Name)
	}
}

func TestMemoryMessageRepository(t *testing.T) {
	ctx := context.Background()
	messages := NewMemoryMessageRepository()

	first, err := messages.Create(ctx, "alice", "bob", "hi")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if first.ID == "" || first.Timestamp.IsZero() {
		t.Fatalf("message missing assigned fields: %+v", first)
	}

	second, err := messages.Create(ctx, "bob", "alice", "hello")
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if _, err := messages.Create(ctx, "alice", "carol", "other thread"); err != nil {
		t.Fatalf("create unrelated message: %v", err)
	}

	forward, err := messages.ListBetween(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("list forward: %v", err)
	}
	reverse, err := messages.ListBetween(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("list reverse: %v", err)
	}

	if len(forward) != 2 || len(reverse) != 2 {
		t.Fatalf("conversation lengths = %d/%d, want 2/2", len(forward), len(reverse))
	}
	for i := range forward {
		if forward[i].ID != reverse[i].ID {
			t.Fatalf("conversation order differs between orientations at %d", i)
		}
	}
	if forward[0].ID != first.ID || forward[1].ID != second.ID {
		t.Fatalf("conversation out of order: %+v", forward)
	}

	other, err := messages.ListBetween(ctx, "carol", "bob")
	if err != nil {
		t.Fatalf("list unrelated: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("unrelated conversation has %d messages, want 0", len(other))
	}
}
