package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	notesPath = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)
)

// PPTXExtractor reads text runs from an OOXML presentation: each slide's
// paragraphs followed by its speaker notes, slides separated by a blank line.
// Slides follow the deck order in ppt/presentation.xml; when that part or its
// relationships cannot be read, they fall back to the number in slideN.xml,
// which is creation order and ignores later reordering. Notes are found through
// the slide's relationships, or by the same number when it has none.
// Legacy binary .ppt files are not zip archives and fail here.
type PPTXExtractor struct{}

type pptxPart struct {
	num  int
	file *zip.File
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type presentation struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

func (PPTXExtractor) Extract(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a pptx archive: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	var slides []pptxPart
	notes := make(map[int]*zip.File)
	for _, f := range zr.File {
		files[f.Name] = f
		if m := slidePath.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, pptxPart{num: n, file: f})
		} else if m := notesPath.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			notes[n] = f
		}
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("pptx archive has no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })
	slides = deckOrder(files, slides)

	var b strings.Builder
	for _, s := range slides {
		text, err := readParagraphs(s.file)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		nf, ok := linkedNotes(files, s.file.Name)
		if !ok {
			nf, ok = notes[s.num]
		}
		if ok {
			noteText, err := readParagraphs(nf)
			if err != nil {
				return "", fmt.Errorf("notes %d: %w", s.num, err)
			}
			if noteText != "" {
				text = strings.TrimSpace(text + "\n" + noteText)
			}
		}
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// deckOrder reorders slides by the sldIdLst of ppt/presentation.xml. Slides
// the list does not name keep their numeric order after the listed ones. Any
// read or parse failure leaves the numeric order unchanged.
func deckOrder(files map[string]*zip.File, slides []pptxPart) []pptxPart {
	pres, ok := files["ppt/presentation.xml"]
	if !ok {
		return slides
	}
	var deck presentation
	if err := decodePart(pres, &deck); err != nil || len(deck.SlideIDs) == 0 {
		return slides
	}
	rels, err := partRels(files, pres.Name)
	if err != nil {
		return slides
	}
	targets := make(map[string]string, len(rels))
	for _, r := range rels {
		targets[r.ID] = r.Target
	}

	byName := make(map[string]pptxPart, len(slides))
	for _, s := range slides {
		byName[s.file.Name] = s
	}
	ordered := make([]pptxPart, 0, len(slides))
	for _, id := range deck.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			continue
		}
		if s, ok := byName[target]; ok {
			ordered = append(ordered, s)
			delete(byName, target)
		}
	}
	for _, s := range slides {
		if _, left := byName[s.file.Name]; left {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// linkedNotes follows the notesSlide relationship of a slide part.
func linkedNotes(files map[string]*zip.File, slideName string) (*zip.File, bool) {
	rels, err := partRels(files, slideName)
	if err != nil {
		return nil, false
	}
	for _, r := range rels {
		if strings.HasSuffix(r.Type, "/notesSlide") {
			f, ok := files[r.Target]
			return f, ok
		}
	}
	return nil, false
}

type partRel struct {
	ID     string
	Type   string
	Target string
}

// partRels reads the relationships of a part with targets resolved to
// archive paths.
func partRels(files map[string]*zip.File, part string) ([]partRel, error) {
	dir, base := path.Split(part)
	f, ok := files[dir+"_rels/"+base+".rels"]
	if !ok {
		return nil, fmt.Errorf("no relationships for %s", part)
	}
	var rels relationships
	if err := decodePart(f, &rels); err != nil {
		return nil, err
	}
	out := make([]partRel, 0, len(rels.Rels))
	for _, r := range rels.Rels {
		out = append(out, partRel{ID: r.ID, Type: r.Type, Target: resolveTarget(dir, r.Target)})
	}
	return out, nil
}

// resolveTarget turns a relationship target into an archive path. Absolute
// targets are rooted at the package root.
func resolveTarget(dir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(dir, target))
}

func decodePart(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// readParagraphs collects a:t runs, one output line per a:p paragraph.
func readParagraphs(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		lines   []string
		current strings.Builder
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
			if t.Name.Local == "br" {
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(current.String()); line != "" {
					lines = append(lines, line)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if line := strings.TrimSpace(current.String()); line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
