// Package normalize turns raw API objects into store-ready models.
//
// Inputs are never mutated; each function works on a shallow copy.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

var ErrMissingKey = errors.New("normalize: missing key")

const metricsKey = "public_metrics"

// Batch holds the normalized objects of one page in upsert order.
type Batch struct {
	Accounts      []*models.Account
	Media         []*models.Media
	IncludedPosts []*models.Post
	Posts         []*models.Post
}

// Len counts every object in the batch.
func (b Batch) Len() int {
	return len(b.Accounts) + len(b.Media) + len(b.IncludedPosts) + len(b.Posts)
}

// Flatten replaces the nested object at key with "key.sub" entries. A
// missing or non-object value is left as is.
func Flatten(obj models.Object, key string) models.Object {
	nested, ok := obj[key].(map[string]any)
	if !ok {
		return obj
	}
	for k, v := range nested {
		obj[key+"."+k] = v
	}
	delete(obj, key)
	return obj
}

// Account lowercases the username, flattens metrics and drops entities.
func Account(raw models.Object) (*models.Account, error) {
	obj := raw.Clone()
	id := obj.ID()
	if id == "" {
		return nil, fmt.Errorf("%w: account id", ErrMissingKey)
	}
	username := strings.ToLower(obj.String("username"))
	if username == "" {
		return nil, fmt.Errorf("%w: username of account %s", ErrMissingKey, id)
	}
	obj["username"] = username
	Flatten(obj, metricsKey)
	delete(obj, "entities")

	return &models.Account{
		ID:              id,
		Username:        username,
		Name:            obj.String("name"),
		ProfileImageURL: obj.String("profile_image_url"),
		Properties:      obj,
	}, nil
}

// Media flattens metrics when present.
func Media(raw models.Object) (*models.Media, error) {
	obj := raw.Clone()
	key := obj.String("media_key")
	if key == "" {
		return nil, fmt.Errorf("%w: media_key", ErrMissingKey)
	}
	Flatten(obj, metricsKey)
	return &models.Media{
		MediaKey:   key,
		Type:       obj.String("type"),
		Properties: obj,
	}, nil
}

// Post flattens metrics and keeps entity blocks.
func Post(raw models.Object) (*models.Post, error) {
	obj := raw.Clone()
	id := obj.ID()
	if id == "" {
		return nil, fmt.Errorf("%w: post id", ErrMissingKey)
	}
	Flatten(obj, metricsKey)
	return &models.Post{
		ID:         id,
		AuthorID:   obj.String("author_id"),
		Text:       obj.String("text"),
		CreatedAt:  obj.String("created_at"),
		Properties: obj,
	}, nil
}

// Page normalizes every category of page.
func Page(page *models.Page) (Batch, error) {
	var (
		b   Batch
		err error
	)
	if b.Accounts, err = mapAll(page.Includes.Users, Account); err != nil {
		return Batch{}, err
	}
	if b.Media, err = mapAll(page.Includes.Media, Media); err != nil {
		return Batch{}, err
	}
	if b.IncludedPosts, err = mapAll(page.Includes.Posts, Post); err != nil {
		return Batch{}, err
	}
	if b.Posts, err = mapAll(page.Posts, Post); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func mapAll[T any](in []models.Object, fn func(models.Object) (T, error)) ([]T, error) {
	out := make([]T, 0, len(in))
	for _, o := range in {
		v, err := fn(o)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
