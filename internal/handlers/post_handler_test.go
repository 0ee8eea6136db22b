package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/inkwellhq/inkwell-backend/internal/authz"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPosts_PaginatesWithHasMore(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	for i := 1; i <= 5; i++ {
		post := e.seedPost(t, alice, fmt.Sprintf("post-%d", i), fmt.Sprintf("Post %d", i))
		post.Category = "web-design"
	}

	c, rec := e.newContext(http.MethodGet, "/api/posts?cat=web-design&page=2&limit=2", "")
	err := e.postHandler().GetPosts(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Posts []struct {
			Slug string `json:"slug"`
			User *struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"posts"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.Posts, 2)
	assert.Equal(t, "post-3", body.Posts[0].Slug)
	assert.Equal(t, "post-4", body.Posts[1].Slug)
	assert.True(t, body.HasMore)
	for _, p := range body.Posts {
		require.NotNil(t, p.User)
		assert.Equal(t, "alice", p.User.Username)
	}
}

func TestGetPosts_LastPageHasNoMore(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	e.seedPost(t, alice, "only-post", "Only Post")

	c, rec := e.newContext(http.MethodGet, "/api/posts?page=1&limit=2", "")
	require.NoError(t, e.postHandler().GetPosts(c))

	var body struct {
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.HasMore)
}

func TestGetPosts_UnknownAuthorIs404(t *testing.T) {
	e := newEnv(t)

	c, rec := e.newContext(http.MethodGet, "/api/posts?author=ghost", "")
	err := e.postHandler().GetPosts(c)
	assert.Equal(t, http.StatusNotFound, httpStatus(err, rec))
}

func TestGetPosts_OrphanedPostsNeverSurface(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	ghost := e.seedUser(t, "sub_ghost", "ghost")
	e.seedPost(t, alice, "kept", "Kept")
	e.seedPost(t, ghost, "orphan", "Orphan")
	_, err := e.users.DeleteUserBySubjectID(t.Context(), "sub_ghost")
	require.NoError(t, err)

	c, rec := e.newContext(http.MethodGet, "/api/posts?limit=10", "")
	require.NoError(t, e.postHandler().GetPosts(c))

	var body struct {
		Posts []struct {
			Slug string `json:"slug"`
		} `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Posts, 1)
	assert.Equal(t, "kept", body.Posts[0].Slug)
}

func TestGetPost_CountsVisitOncePerWindow(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	post := e.seedPost(t, alice, "my-post", "My Post")

	h := e.postHandler()
	c, rec := e.newContext(http.MethodGet, "/api/posts/my-post", "")
	c.SetParamNames("slug")
	c.SetParamValues("my-post")
	require.NoError(t, h.GetPost(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// A nil debouncer counts every view.
	stored, err := e.posts.GetPostByID(t.Context(), post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Visit)
}

func TestGetPost_UnknownSlugIs404(t *testing.T) {
	e := newEnv(t)

	c, rec := e.newContext(http.MethodGet, "/api/posts/missing", "")
	c.SetParamNames("slug")
	c.SetParamValues("missing")
	err := e.postHandler().GetPost(c)
	assert.Equal(t, http.StatusNotFound, httpStatus(err, rec))
}

func TestCreatePost_ResolvesSlugCollisions(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	e.seedPost(t, alice, "my-title", "older post with the same slug")

	c, rec := e.newContext(http.MethodPost, "/api/posts", `{"title":"My Title","content":"body"}`)
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, e.postHandler().CreatePost(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "my-title-2", created.Slug)
}

func TestCreatePost_RequiresAuthentication(t *testing.T) {
	e := newEnv(t)

	c, rec := e.newContext(http.MethodPost, "/api/posts", `{"title":"My Title","content":"body"}`)
	err := e.postHandler().CreatePost(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(err, rec))
}

func TestCreatePost_RejectsMissingTitle(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")

	c, rec := e.newContext(http.MethodPost, "/api/posts", `{"content":"body"}`)
	asUser(c, alice, authz.RoleUser)
	err := e.postHandler().CreatePost(c)
	assert.Equal(t, http.StatusBadRequest, httpStatus(err, rec))
}

func TestDeletePost_OwnerAndAdminOnly(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	bob := e.seedUser(t, "sub_bob", "bob")
	admin := e.seedUser(t, "sub_admin", "admin-user")
	h := e.postHandler()

	post := e.seedPost(t, alice, "target", "Target")
	c, rec := e.newContext(http.MethodDelete, "/api/posts/"+post.ID.Hex(), "")
	c.SetParamNames("id")
	c.SetParamValues(post.ID.Hex())
	asUser(c, bob, authz.RoleUser)
	err := h.DeletePost(c)
	assert.Equal(t, http.StatusForbidden, httpStatus(err, rec))

	c, rec = e.newContext(http.MethodDelete, "/api/posts/"+post.ID.Hex(), "")
	c.SetParamNames("id")
	c.SetParamValues(post.ID.Hex())
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, h.DeletePost(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	other := e.seedPost(t, alice, "other-target", "Other Target")
	c, rec = e.newContext(http.MethodDelete, "/api/posts/"+other.ID.Hex(), "")
	c.SetParamNames("id")
	c.SetParamValues(other.ID.Hex())
	asUser(c, admin, authz.RoleAdmin)
	require.NoError(t, h.DeletePost(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeletePost_CascadesComments(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	bob := e.seedUser(t, "sub_bob", "bob")
	post := e.seedPost(t, alice, "target", "Target")
	kept := e.seedPost(t, bob, "kept", "Kept")
	require.NoError(t, e.comments.CreateComment(t.Context(),
		&models.Comment{UserID: bob.ID, PostID: post.ID, Desc: "on target"}))
	require.NoError(t, e.comments.CreateComment(t.Context(),
		&models.Comment{UserID: bob.ID, PostID: kept.ID, Desc: "on kept"}))

	c, rec := e.newContext(http.MethodDelete, "/api/posts/"+post.ID.Hex(), "")
	c.SetParamNames("id")
	c.SetParamValues(post.ID.Hex())
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, e.postHandler().DeletePost(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, e.comments.comments, 1)
	assert.Equal(t, "on kept", e.comments.comments[0].Desc)
}

func TestFeaturePost_AdminOnlyEvenForOwner(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	admin := e.seedUser(t, "sub_admin", "admin-user")
	post := e.seedPost(t, alice, "target", "Target")
	h := e.postHandler()

	payload := fmt.Sprintf(`{"post_id":%q}`, post.ID.Hex())

	c, rec := e.newContext(http.MethodPatch, "/api/posts/feature", payload)
	asUser(c, alice, authz.RoleUser)
	err := h.FeaturePost(c)
	assert.Equal(t, http.StatusForbidden, httpStatus(err, rec))

	c, rec = e.newContext(http.MethodPatch, "/api/posts/feature", payload)
	asUser(c, admin, authz.RoleAdmin)
	require.NoError(t, h.FeaturePost(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := e.posts.GetPostByID(t.Context(), post.ID.Hex())
	require.NoError(t, err)
	assert.True(t, stored.IsFeatured)

	// The toggle flips it back.
	c, _ = e.newContext(http.MethodPatch, "/api/posts/feature", payload)
	asUser(c, admin, authz.RoleAdmin)
	require.NoError(t, h.FeaturePost(c))
	stored, err = e.posts.GetPostByID(t.Context(), post.ID.Hex())
	require.NoError(t, err)
	assert.False(t, stored.IsFeatured)
}

func TestSavePost_SecondSaveConflicts(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	post := e.seedPost(t, alice, "target", "Target")
	h := e.postHandler()
	payload := fmt.Sprintf(`{"post_id":%q}`, post.ID.Hex())

	c, rec := e.newContext(http.MethodPost, "/api/posts/save", payload)
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, h.SavePost(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = e.newContext(http.MethodPost, "/api/posts/save", payload)
	asUser(c, alice, authz.RoleUser)
	err := h.SavePost(c)
	assert.Equal(t, http.StatusConflict, httpStatus(err, rec))
}

func TestSavePost_UnknownPostIs404(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")

	c, rec := e.newContext(http.MethodPost, "/api/posts/save", `{"post_id":"64b000000000000000000000"}`)
	asUser(c, alice, authz.RoleUser)
	err := e.postHandler().SavePost(c)
	assert.Equal(t, http.StatusNotFound, httpStatus(err, rec))
}

func TestUnsavePost_AbsentIDIsNoOp(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	post := e.seedPost(t, alice, "target", "Target")
	payload := fmt.Sprintf(`{"post_id":%q}`, post.ID.Hex())

	c, rec := e.newContext(http.MethodPost, "/api/posts/unsave", payload)
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, e.postHandler().UnsavePost(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSavedPosts_RoundTrip(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	post := e.seedPost(t, alice, "keeper", "Keeper")
	h := e.postHandler()
	payload := fmt.Sprintf(`{"post_id":%q}`, post.ID.Hex())

	c, _ := e.newContext(http.MethodPost, "/api/posts/save", payload)
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, h.SavePost(c))

	c, rec := e.newContext(http.MethodGet, "/api/posts/saved/all", "")
	asUser(c, alice, authz.RoleUser)
	require.NoError(t, h.GetSavedPosts(c))

	var body struct {
		SavedPosts []struct {
			Slug string `json:"slug"`
		} `json:"saved_posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.SavedPosts, 1)
	assert.Equal(t, "keeper", body.SavedPosts[0].Slug)
}

func TestGetFeaturedPosts(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	featured := e.seedPost(t, alice, "shiny", "Shiny")
	featured.IsFeatured = true
	e.seedPost(t, alice, "plain", "Plain")

	c, rec := e.newContext(http.MethodGet, "/api/posts/featured", "")
	require.NoError(t, e.postHandler().GetFeaturedPosts(c))

	var body struct {
		FeaturedPosts []struct {
			Slug string `json:"slug"`
		} `json:"featured_posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.FeaturedPosts, 1)
	assert.Equal(t, "shiny", body.FeaturedPosts[0].Slug)
}

func TestGetPostsByUser(t *testing.T) {
	e := newEnv(t)
	alice := e.seedUser(t, "sub_alice", "alice")
	bob := e.seedUser(t, "sub_bob", "bob")
	e.seedPost(t, alice, "alice-1", "Alice One")
	e.seedPost(t, alice, "alice-2", "Alice Two")
	e.seedPost(t, bob, "bob-1", "Bob One")

	c, rec := e.newContext(http.MethodGet, "/api/posts/user/alice", "")
	c.SetParamNames("username")
	c.SetParamValues("alice")
	require.NoError(t, e.postHandler().GetPostsByUser(c))

	var body struct {
		Posts []struct {
			Slug string `json:"slug"`
		} `json:"posts"`
		TotalPosts int64 `json:"total_posts"`
		User       struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Posts, 2)
	assert.Equal(t, int64(2), body.TotalPosts)
	assert.Equal(t, "alice", body.User.Username)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My First Post", "my-first-post"},
		{"  Trimmed  ", "trimmed"},
		{"already-sluggy", "already-sluggy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.title))
	}
}
