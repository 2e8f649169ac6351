package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	bindingsHeader = "## Identity Bindings"
	diaryHeader    = "## Diary"
)

var (
	bindingLineRe = regexp.MustCompile(`^- \*\*(.+?)\*\*: (.+) \(Level (\d+)\)\s*$`)
	diaryLineRe   = regexp.MustCompile(`^- \*\*(\d{4}-\d{2}-\d{2} \d{2}:\d{2})\*\*: (.*)$`)
)

// Binding links an external identity provider (a messaging platform, a
// pairing code, a biometric enrollment) to a trust level MyMolt will grant
// sessions that present it.
type Binding struct {
	Provider string
	ID       string
	Level    int // 1=Low, 2=Medium, 3=High
}

// TrustLevel converts the binding's raw level into the identity package's
// TrustLevel enum. Unknown levels fail safe to TrustLow.
func (b Binding) TrustLevel() TrustLevel {
	switch b.Level {
	case 3:
		return TrustHigh
	case 2:
		return TrustMedium
	default:
		return TrustLow
	}
}

// DiaryEntry is a timestamped note MyMolt has recorded about its principal,
// e.g. a preference learned in conversation.
type DiaryEntry struct {
	Timestamp time.Time
	Content   string
}

// Soul is the durable identity document: a human-editable markdown file
// with two managed sections (Identity Bindings, Diary) MyMolt appends to
// programmatically, and everything else left for the human to write.
type Soul struct {
	Path         string
	Bindings     []Binding
	DiaryEntries []DiaryEntry
	raw          string
}

// Load reads and parses a Soul document. A missing file is not an error —
// it returns an empty Soul rooted at path, so a fresh install can call
// AddBinding/Save to create it.
func Load(path string) (*Soul, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Soul{Path: path}, nil
		}
		return nil, fmt.Errorf("identity: reading soul %s: %w", path, err)
	}

	s := &Soul{Path: path, raw: string(data)}
	s.parse()
	return s, nil
}

func (s *Soul) parse() {
	s.Bindings = nil
	s.DiaryEntries = nil

	if body, ok := sectionBody(s.raw, bindingsHeader); ok {
		for _, line := range strings.Split(body, "\n") {
			m := bindingLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
			if m == nil {
				continue
			}
			level, _ := strconv.Atoi(m[3])
			s.Bindings = append(s.Bindings, Binding{Provider: m[1], ID: m[2], Level: level})
		}
	}

	if body, ok := sectionBody(s.raw, diaryHeader); ok {
		for _, line := range strings.Split(body, "\n") {
			m := diaryLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
			if m == nil {
				continue
			}
			ts, err := time.Parse("2006-01-02 15:04", m[1])
			if err != nil {
				continue
			}
			s.DiaryEntries = append(s.DiaryEntries, DiaryEntry{Timestamp: ts, Content: m[2]})
		}
	}
}

// sectionBody returns the text between a "## Header" line (exclusive) and
// the next top-level "## " header or end of document.
func sectionBody(content, header string) (string, bool) {
	idx := indexOfLine(content, header)
	if idx < 0 {
		return "", false
	}
	start := idx + len(header)
	if nl := strings.IndexByte(content[start:], '\n'); nl >= 0 {
		start += nl + 1
	} else {
		return "", true
	}

	rest := content[start:]
	end := len(rest)
	for _, next := range nextHeaderOffsets(rest) {
		if next < end {
			end = next
		}
	}
	return rest[:end], true
}

// indexOfLine finds header as a whole line within content, returning the
// byte offset of its first character, or -1 if absent.
func indexOfLine(content, header string) int {
	offset := 0
	for {
		idx := strings.Index(content[offset:], header)
		if idx < 0 {
			return -1
		}
		abs := offset + idx
		lineStart := abs == 0 || content[abs-1] == '\n'
		lineEnd := abs+len(header) == len(content) || content[abs+len(header)] == '\n' || content[abs+len(header)] == '\r'
		if lineStart && lineEnd {
			return abs
		}
		offset = abs + len(header)
	}
}

// nextHeaderOffsets returns the offsets of every "## " header line in rest,
// used to find where the current managed section ends.
func nextHeaderOffsets(rest string) []int {
	var offsets []int
	offset := 0
	for {
		idx := strings.Index(rest[offset:], "\n## ")
		if idx < 0 {
			break
		}
		offsets = append(offsets, offset+idx+1)
		offset += idx + 4
	}
	return offsets
}

// MaxTrustLevel returns the highest trust level among all bindings, or
// TrustLow if there are none.
func (s *Soul) MaxTrustLevel() TrustLevel {
	max := TrustLow
	for _, b := range s.Bindings {
		if lvl := b.TrustLevel(); lvl > max {
			max = lvl
		}
	}
	return max
}

// HasBinding reports whether a (provider, id) pair is already bound.
func (s *Soul) HasBinding(provider, id string) bool {
	for _, b := range s.Bindings {
		if b.Provider == provider && b.ID == id {
			return true
		}
	}
	return false
}

// AddBinding registers a new identity binding and persists the document.
// Duplicate (provider, id) pairs are rejected rather than silently merged,
// since a silently-upgraded trust level is a security-relevant surprise.
func (s *Soul) AddBinding(provider, id string, level int) error {
	if s.HasBinding(provider, id) {
		return fmt.Errorf("identity: binding %s:%s already exists", provider, id)
	}
	s.Bindings = append(s.Bindings, Binding{Provider: provider, ID: id, Level: level})
	return s.Save()
}

// AppendDiaryEntry records a timestamped note and persists the document.
func (s *Soul) AppendDiaryEntry(ts time.Time, content string) error {
	s.DiaryEntries = append(s.DiaryEntries, DiaryEntry{Timestamp: ts, Content: content})
	return s.Save()
}

// Save rewrites the managed sections (Identity Bindings, Diary) in place
// and writes the result atomically via a temp file plus rename, preserving
// every byte of unmanaged content verbatim — including on a document that
// did not previously contain one or both managed sections. This is a
// stronger contract than "only write if the file is missing": re-running
// Save always reflects the in-memory Bindings/DiaryEntries.
func (s *Soul) Save() error {
	content := s.raw
	if content == "" {
		content = "# Soul\n"
	}

	content = replaceSection(content, bindingsHeader, renderBindings(s.Bindings))
	content = replaceSection(content, diaryHeader, renderDiary(s.DiaryEntries))

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".soul-*.tmp")
	if err != nil {
		return fmt.Errorf("identity: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("identity: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("identity: renaming into place: %w", err)
	}

	s.raw = content
	return nil
}

// replaceSection swaps the body of header for body, appending a new
// section at the end of the document if header is not yet present.
func replaceSection(content, header, body string) string {
	idx := indexOfLine(content, header)
	if idx < 0 {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + "\n" + header + "\n\n" + body
	}

	headerLineEnd := idx + len(header)
	bodyStart := headerLineEnd
	if nl := strings.IndexByte(content[bodyStart:], '\n'); nl >= 0 {
		bodyStart += nl + 1
	} else {
		bodyStart = len(content)
	}

	rest := content[bodyStart:]
	bodyEnd := len(rest)
	for _, next := range nextHeaderOffsets(rest) {
		if next < bodyEnd {
			bodyEnd = next
		}
	}

	return content[:bodyStart] + body + rest[bodyEnd:]
}

func renderBindings(bindings []Binding) string {
	if len(bindings) == 0 {
		return ""
	}
	sorted := make([]Binding, len(bindings))
	copy(sorted, bindings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Provider < sorted[j].Provider })

	var b strings.Builder
	for _, bind := range sorted {
		fmt.Fprintf(&b, "- **%s**: %s (Level %d)\n", bind.Provider, bind.ID, bind.Level)
	}
	return b.String()
}

func renderDiary(entries []DiaryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- **%s**: %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Content)
	}
	return b.String()
}
