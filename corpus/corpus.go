// Package corpus provides read-only access to a directory of one-file-per-page
// OCR text files named like "marathi-riyasat-purvardha_page_0001.txt".
package corpus

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PageStore is a stateless lookup of page files by corpus-relative name.
type PageStore interface {
	// ReadLines returns the newline-split content of the named page file.
	// ok is false when the file is absent or unreadable.
	ReadLines(name string) (lines []string, ok bool)
}

// DirStore reads page files from a flat corpus directory.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) ReadLines(name string) ([]string, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return nil, false
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil, true
	}
	return strings.Split(content, "\n"), true
}

// ListPages returns the names of all .txt files in dir, sorted by name so that
// document ids assigned in enumeration order are deterministic.
func ListPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}

var pageFilenameRegexp = regexp.MustCompile(`^(.+)_page_(\d+)\.txt$`)

// ParsePageFilename splits a page filename into its book prefix and page
// number. ok is false when the name does not follow the corpus convention.
func ParsePageFilename(name string) (prefix string, page int, ok bool) {
	match := pageFilenameRegexp.FindStringSubmatch(name)
	if match == nil {
		return "", 0, false
	}
	page, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, false
	}
	return match[1], page, true
}

// AdjacentPageFilename derives the filename of the page offset pages away
// (+1 next, -1 previous), zero-padded to four digits. Returns "" when the
// current name does not follow the corpus convention or the target page would
// be negative.
func AdjacentPageFilename(name string, offset int) string {
	prefix, page, ok := ParsePageFilename(name)
	if !ok {
		return ""
	}
	adjacent := page + offset
	if adjacent < 0 {
		return ""
	}
	return prefix + "_page_" + leftPad(strconv.Itoa(adjacent), 4) + ".txt"
}

var digitsRegexp = regexp.MustCompile(`\d+`)

// ExtractPageNumber pulls the page number out of an arbitrary page filename:
// the last run of digits in the stem. ok is false when the stem holds none.
func ExtractPageNumber(name string) (page int, ok bool) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	digits := digitsRegexp.FindAllString(stem, -1)
	if len(digits) == 0 {
		return 0, false
	}
	page, err := strconv.Atoi(digits[len(digits)-1])
	if err != nil {
		return 0, false
	}
	return page, true
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
