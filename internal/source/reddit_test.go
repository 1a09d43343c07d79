package source

import (
	"strings"
	"testing"
)

func TestKeepCommentBody(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{strings.Repeat("a", 30), true},
		{strings.Repeat("a", 29), false},
		{"  " + strings.Repeat("a", 29) + "  ", false}, // trimmed length counts
		{"[deleted]", false},
		{"[removed]", false},
		{"  [deleted]  ", false},
		{"I spend every Sunday night chasing unpaid invoices by hand", true},
	}
	for _, c := range cases {
		if got := KeepCommentBody(c.body); got != c.want {
			t.Errorf("KeepCommentBody(%q) = %v, want %v", c.body, got, c.want)
		}
	}
}

func TestCommentLimitFor(t *testing.T) {
	cases := []struct {
		score, comments, want int
	}{
		{150, 10, 500},
		{10, 150, 500},
		{100, 0, 500},
		{60, 10, 300},
		{10, 60, 300},
		{10, 25, 200},
		{15, 5, 200},
		{5, 19, 100},
		{0, 0, 100},
	}
	for _, c := range cases {
		if got := CommentLimitFor(c.score, c.comments); got != c.want {
			t.Errorf("CommentLimitFor(%d, %d) = %d, want %d", c.score, c.comments, got, c.want)
		}
	}
}

func TestKeepPost(t *testing.T) {
	base := postData{ID: "abc", Author: "someone", Title: "t"}

	if !keepPost(base) {
		t.Errorf("plain post should be kept")
	}

	nsfw := base
	nsfw.Over18 = true
	if keepPost(nsfw) {
		t.Errorf("NSFW post should be dropped")
	}

	locked := base
	locked.Locked = true
	if keepPost(locked) {
		t.Errorf("locked post should be dropped")
	}

	stickied := base
	stickied.Stickied = true
	if keepPost(stickied) {
		t.Errorf("stickied post should be dropped")
	}

	removed := base
	removed.RemovedBy = "moderator"
	if keepPost(removed) {
		t.Errorf("removed post should be dropped")
	}

	deleted := base
	deleted.Author = "[deleted]"
	if keepPost(deleted) {
		t.Errorf("deleted-author post should be dropped")
	}
}
