package storage

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultExtension = "png"

var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)

// Keyer derives object keys of the form [folder/]<epoch-millis>-<uuid>.<ext>.
type Keyer struct {
	now   func() time.Time
	newID func() string
}

func NewKeyer() *Keyer {
	return &Keyer{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// NewKeyerWithSource lets tests pin the clock and identifier source.
func NewKeyerWithSource(now func() time.Time, newID func() string) *Keyer {
	return &Keyer{now: now, newID: newID}
}

func (k *Keyer) MakeKey(folder, originalName string) string {
	key := strconv.FormatInt(k.now().UnixMilli(), 10) + "-" + k.newID() + "." + Extension(originalName)

	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

// Extension returns the extension of a filename or URL, without query string
// or fragment. Names without a usable extension yield "png".
func Extension(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return defaultExtension
	}
	ext := name[dot+1:]
	if !extensionPattern.MatchString(ext) {
		return defaultExtension
	}
	return ext
}
