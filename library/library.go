package library

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"

	"songdrop/format"
	"songdrop/types"
)

// Library is the permanent-storage contract the ingestion pipeline depends
// on. ImportFile moves a staged file into the library, CheckExists answers
// the duplicate question for a candidate, RefreshFromDisk rebuilds the
// catalog from whatever is on disk. RefreshFromDisk is idempotent and
// returns only once the rebuilt view is visible to callers.
type Library interface {
	ImportFile(stagedPath string, force bool) (*types.SongRef, error)
	CheckExists(stagedPath string) (bool, *types.SongRef)
	RefreshFromDisk() error
	Songs() []*types.SongRef
	Root() string
}

// diskLibrary implements Library over a directory tree laid out as
// Artist/Album/track files, the way most players organize music.
type diskLibrary struct {
	root  string
	mu    sync.RWMutex
	songs map[string]*types.SongRef // keyed by songKey
}

// NewDiskLibrary opens (creating if needed) a library rooted at dir and
// loads the current catalog.
func NewDiskLibrary(dir string) (Library, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create library root: %w", err)
	}

	lib := &diskLibrary{
		root:  dir,
		songs: make(map[string]*types.SongRef),
	}
	if err := lib.RefreshFromDisk(); err != nil {
		return nil, err
	}
	return lib, nil
}

func (l *diskLibrary) Root() string {
	return l.root
}

// RefreshFromDisk walks the library root and rebuilds the catalog in one
// pass. The new view is swapped in atomically under the lock, so repeated
// calls are safe and the method only returns once the refresh is complete.
func (l *diskLibrary) RefreshFromDisk() error {
	songs := make(map[string]*types.SongRef)

	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Error accessing path %s: %v", path, err)
			return nil // Continue walking, don't fail entire scan
		}
		if info.IsDir() {
			return nil
		}

		kind := format.KindForExtension(filepath.Ext(path))
		if kind == format.Unknown {
			return nil
		}

		ref := l.describe(path, kind)
		songs[songKey(ref.Title, ref.Artist)] = ref
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.songs = songs
	l.mu.Unlock()
	return nil
}

// CheckExists reports whether an equivalent song is already in the
// catalog. The candidate is described the same way catalog entries are, so
// both sides of the comparison normalize identically.
func (l *diskLibrary) CheckExists(stagedPath string) (bool, *types.SongRef) {
	candidate := l.describe(stagedPath, format.KindForExtension(filepath.Ext(stagedPath)))

	l.mu.RLock()
	defer l.mu.RUnlock()
	if ref, ok := l.songs[songKey(candidate.Title, candidate.Artist)]; ok {
		return true, ref
	}
	return false, nil
}

// ImportFile validates the staged file's container, guards against
// duplicates unless force is set, and copies the bytes into the library
// tree under Artist/Album. MP3 files get missing ID3 tags backfilled after
// the copy so imported songs are at least minimally tagged.
func (l *diskLibrary) ImportFile(stagedPath string, force bool) (*types.SongRef, error) {
	head, err := readHead(stagedPath)
	if err != nil {
		return nil, &ImportError{Kind: OtherFailure, Err: err}
	}

	kind := format.DetectStrict(head)
	if kind == format.Unknown {
		return nil, &ImportError{
			Kind: UnsupportedFormat,
			Err:  fmt.Errorf("unrecognized container in %s", filepath.Base(stagedPath)),
		}
	}

	if !force {
		if exists, match := l.CheckExists(stagedPath); exists {
			return nil, &ImportError{Kind: DuplicateFound, Existing: match}
		}
	}

	ref := l.describe(stagedPath, kind)

	destDir := filepath.Join(l.root, safeComponent(ref.Artist, "Unknown Artist"), safeComponent(ref.Album, "Unknown Album"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, &ImportError{Kind: WriteFailure, Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(stagedPath), filepath.Ext(stagedPath))
	dest := uniqueDest(destDir, safeComponent(base, "track"), format.Extension(kind))

	if err := copyFile(stagedPath, dest); err != nil {
		return nil, &ImportError{Kind: WriteFailure, Err: err}
	}

	if kind == format.MP3 {
		if err := fillID3Tags(dest); err != nil {
			log.Printf("Warning: could not normalize ID3 tags for %s: %v", dest, err)
		}
	}

	ref.Path = dest
	if rel, err := filepath.Rel(l.root, dest); err == nil {
		ref.ID = filepath.ToSlash(rel)
	}

	l.mu.Lock()
	l.songs[songKey(ref.Title, ref.Artist)] = ref
	l.mu.Unlock()

	return ref, nil
}

// Songs returns the current catalog ordered by artist then title.
func (l *diskLibrary) Songs() []*types.SongRef {
	l.mu.RLock()
	songs := make([]*types.SongRef, 0, len(l.songs))
	for _, ref := range l.songs {
		songs = append(songs, ref)
	}
	l.mu.RUnlock()

	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Artist != songs[j].Artist {
			return songs[i].Artist < songs[j].Artist
		}
		return songs[i].Title < songs[j].Title
	})
	return songs
}

// describe reads tag metadata from an audio file with fallback logic: when
// the container carries no readable tags, metadata comes from the
// Artist/Album/NN - Title path convention, or from the bare filename for
// paths outside the library root.
func (l *diskLibrary) describe(path string, kind format.Kind) *types.SongRef {
	ref := &types.SongRef{
		Path:   path,
		Format: string(kind),
	}

	if f, err := os.Open(path); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			ref.Title = meta.Title()
			ref.Artist = meta.Artist()
			ref.Album = meta.Album()
			track, _ := meta.Track()
			ref.Track = track
		}
		f.Close()
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	ref.ID = filepath.ToSlash(rel)

	if ref.Title == "" || ref.Artist == "" || ref.Album == "" {
		fallback := metadataFromPath(rel)
		if ref.Title == "" {
			ref.Title = fallback.Title
		}
		if ref.Artist == "" {
			ref.Artist = fallback.Artist
		}
		if ref.Album == "" {
			ref.Album = fallback.Album
		}
		if ref.Track == 0 {
			ref.Track = fallback.Track
		}
	}

	return ref
}

type pathMeta struct {
	Title  string
	Artist string
	Album  string
	Track  int
}

var trackPrefix = regexp.MustCompile(`^(\d+)[\.\-\s]+(.+)`)

// metadataFromPath extracts metadata from the file path as a fallback.
// Expected shape: Artist/Album/NN - Title.ext, with missing levels left
// empty.
func metadataFromPath(filePath string) pathMeta {
	var meta pathMeta

	parts := strings.Split(filepath.ToSlash(filePath), "/")
	filename := filepath.Base(filePath)

	if len(parts) >= 3 {
		meta.Artist = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		meta.Album = parts[len(parts)-2]
	}

	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if matches := trackPrefix.FindStringSubmatch(title); len(matches) > 2 {
		title = matches[2]
		if trackNum, err := strconv.Atoi(matches[1]); err == nil {
			meta.Track = trackNum
		}
	}
	meta.Title = title

	return meta
}

// songKey normalizes a title/artist pair for duplicate matching: case,
// punctuation and whitespace differences do not distinguish songs.
var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func songKey(title, artist string) string {
	norm := func(s string) string {
		return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
	}
	return norm(title) + "|" + norm(artist)
}

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// safeComponent turns a tag value into a single path component.
func safeComponent(s, fallback string) string {
	s = strings.TrimSpace(illegalChars.ReplaceAllString(s, "_"))
	if s == "" || strings.Trim(s, "_ ") == "" {
		return fallback
	}
	return s
}

// uniqueDest picks a destination path that does not clobber an existing
// file. Two distinct songs can land on the same Artist/Album/basename; the
// second gets a numbered suffix instead of truncating the first.
func uniqueDest(dir, base, ext string) string {
	dest := filepath.Join(dir, base+ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(dest); err != nil {
			return dest
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}
}

// readHead returns the first ScanWindow bytes of a file, fewer when the
// file is shorter.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, format.ScanWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// fillID3Tags backfills missing ID3 title and artist from the filename so
// imported MP3s are at least minimally tagged.
func fillID3Tags(path string) error {
	tagFile, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("error opening file for ID3 tag editing: %w", err)
	}
	defer tagFile.Close()

	changed := false
	if tagFile.Title() == "" {
		base := filepath.Base(path)
		tagFile.SetTitle(strings.TrimSuffix(base, filepath.Ext(base)))
		changed = true
	}
	if tagFile.Artist() == "" {
		tagFile.SetArtist("Unknown Artist")
		changed = true
	}

	if !changed {
		return nil
	}
	return tagFile.Save()
}
