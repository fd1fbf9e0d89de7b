package models

// Object is a decoded JSON object returned by the remote API.
type Object map[string]any

// ID returns the "id" attribute or an empty string.
func (o Object) ID() string {
	s, _ := o["id"].(string)
	return s
}

// String returns the attribute k when it is a string.
func (o Object) String(k string) string {
	s, _ := o[k].(string)
	return s
}

// Clone returns a shallow copy of o.
func (o Object) Clone() Object {
	c := make(Object, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Includes are the side objects referenced from a page's posts.
type Includes struct {
	Users []Object `json:"users,omitempty"`
	Media []Object `json:"media,omitempty"`
	Posts []Object `json:"tweets,omitempty"`
}

// Page is one page of a timeline, newest post first.
type Page struct {
	Posts     []Object
	Includes  Includes
	NextToken string
	// Raw is the undecoded response body.
	Raw []byte
}

// Range is the id window observed while draining a timeline. Both ids are
// empty when no page carried posts.
type Range struct {
	NewestID string
	OldestID string
}

// Empty reports whether no post was observed.
func (r Range) Empty() bool {
	return r.NewestID == "" && r.OldestID == ""
}
