package models

import "time"

// Kind names a document collection.
type Kind string

const (
	KindUser   Kind = "users"
	KindBand   Kind = "bands"
	KindReview Kind = "reviews"
	KindSample Kind = "samples"
)

// Kinds lists every collection known to the platform.
var Kinds = []Kind{KindUser, KindBand, KindReview, KindSample}

// Valid reports whether k is a known collection.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// User represents a musician profile on the platform.
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Password    string   `json:"password,omitempty"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Country     string   `json:"country,omitempty"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres"`
	Instruments []string `json:"instruments"`
	Rank        int      `json:"rank,omitempty"`
	Img         string   `json:"img,omitempty"`

	Band           string   `json:"band,omitempty"`
	Samples        []string `json:"samples"`
	Reviews        []string `json:"reviews"`
	BandReviews    []string `json:"bandReviews"`
	ArtistReviews  []string `json:"artistReviews"`
	Friends        []string `json:"friends"`
	FriendRequests []string `json:"friendRequests"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Band groups musicians and collects reviews about the band.
type Band struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Genres    []string  `json:"genres"`
	Members   []string  `json:"members"`
	Reviews   []string  `json:"reviews"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is written by a user about either a band or another user.
type Review struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Img     string   `json:"img,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
	Author  string   `json:"author"`
	Band    string   `json:"band,omitempty"`
	Artist  string   `json:"artist,omitempty"`
}

// Subject resolves which entity the review is about. ok is false when the
// review carries neither a band nor an artist reference.
func (r Review) Subject() (Subject, bool) {
	switch {
	case r.Band != "":
		return Subject{Kind: SubjectBand, ID: r.Band}, true
	case r.Artist != "":
		return Subject{Kind: SubjectUser, ID: r.Artist}, true
	default:
		return Subject{}, false
	}
}

// Sample is an audio snippet published by an artist.
type Sample struct {
	ID        string    `json:"id"`
	Artist    string    `json:"artist"`
	Audio     string    `json:"audio"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubjectKind distinguishes the two things a review can be about.
type SubjectKind string

const (
	SubjectUser SubjectKind = "user"
	SubjectBand SubjectKind = "band"
)

// Subject is the target of a review: a band or a user, never both.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// Collection returns the document kind holding the subject.
func (s Subject) Collection() Kind {
	if s.Kind == SubjectBand {
		return KindBand
	}
	return KindUser
}

// BackReference returns the field on the subject document listing reviews about it.
func (s Subject) BackReference() string {
	if s.Kind == SubjectBand {
		return "reviews"
	}
	return "artistReviews"
}
