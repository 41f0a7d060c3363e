package deck

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Open Packaging Conventions plumbing: a .pptx/.potx file is a zip of XML
// parts plus media, wired together by relationship parts and a content-types
// manifest. Everything here works on literal part names ("ppt/slides/
// slide1.xml") with no leading slash; content-type PartName attributes are
// the only place the leading slash appears.

const (
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"

	relTypeSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeNotesMaster = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesMaster"
	relTypeNotesSlide  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	relTypeImage       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	ctSlide      = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctNotesSlide = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"

	contentTypesPart = "[Content_Types].xml"
)

// relationship mirrors one <Relationship> element. Mode preserves
// TargetMode="External" entries (hyperlinks and the like) verbatim.
type relationship struct {
	ID     string
	Type   string
	Target string
	Mode   string
}

// pkg is the in-memory zip: part name -> bytes, plus the original entry
// order so untouched templates round-trip with a stable layout.
type pkg struct {
	parts map[string][]byte
	order []string
}

func openPackage(data []byte) (*pkg, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a valid OPC package: %w", err)
	}

	p := &pkg{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		p.parts[f.Name] = b
		p.order = append(p.order, f.Name)
	}
	if _, ok := p.parts[contentTypesPart]; !ok {
		return nil, fmt.Errorf("package has no %s part", contentTypesPart)
	}
	return p, nil
}

func (p *pkg) part(name string) ([]byte, bool) {
	b, ok := p.parts[name]
	return b, ok
}

func (p *pkg) setPart(name string, data []byte) {
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// removePart deletes a part and its order entry, so a later setPart under
// the same name (purged slide names get reused) yields exactly one zip entry.
func (p *pkg) removePart(name string) {
	delete(p.parts, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *pkg) hasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// partNames returns all current part names, sorted.
func (p *pkg) partNames() []string {
	names := make([]string, 0, len(p.parts))
	for name := range p.parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bytes serializes the package back to a zip, original entries first in
// their original order, new parts after.
func (p *pkg) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.order {
		data, ok := p.parts[name]
		if !ok {
			continue // removed
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize package: %w", err)
	}
	return buf.Bytes(), nil
}

// relsPath maps a part name to its relationships part
// (ppt/presentation.xml -> ppt/_rels/presentation.xml.rels).
func relsPath(partName string) string {
	dir, base := path.Split(partName)
	return dir + "_rels/" + base + ".rels"
}

// resolveTarget resolves a relationship target relative to the source part's
// directory ("../media/image1.png" from ppt/slides -> ppt/media/image1.png).
func resolveTarget(sourcePart, target string) string {
	return path.Clean(path.Join(path.Dir(sourcePart), target))
}

// relativeTarget is the inverse: the target string to write into sourcePart's
// rels so it points at destPart.
func relativeTarget(sourcePart, destPart string) string {
	srcDir := path.Dir(sourcePart)
	up := ""
	for !strings.HasPrefix(destPart, srcDir+"/") && srcDir != "." {
		srcDir = path.Dir(srcDir)
		up += "../"
	}
	if srcDir == "." {
		return up + destPart
	}
	return up + strings.TrimPrefix(destPart, srcDir+"/")
}

// readRels parses a part's relationships. A missing rels part yields an
// empty list, not an error.
func (p *pkg) readRels(partName string) ([]relationship, error) {
	data, ok := p.parts[relsPath(partName)]
	if !ok {
		return nil, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPath(partName), err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty relationships part %s", relsPath(partName))
	}
	var rels []relationship
	for _, el := range root.ChildElements() {
		if el.Tag != "Relationship" {
			continue
		}
		rels = append(rels, relationship{
			ID:     el.SelectAttrValue("Id", ""),
			Type:   el.SelectAttrValue("Type", ""),
			Target: el.SelectAttrValue("Target", ""),
			Mode:   el.SelectAttrValue("TargetMode", ""),
		})
	}
	return rels, nil
}

// writeRels serializes a part's relationships, creating or replacing the
// rels part.
func (p *pkg) writeRels(partName string, rels []relationship) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRelationships)
	for _, r := range rels {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", r.ID)
		el.CreateAttr("Type", r.Type)
		el.CreateAttr("Target", r.Target)
		if r.Mode != "" {
			el.CreateAttr("TargetMode", r.Mode)
		}
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", relsPath(partName), err)
	}
	p.setPart(relsPath(partName), data)
	return nil
}

// nextRelID returns an unused rIdN identifier for the given relationships.
func nextRelID(rels []relationship) string {
	max := 0
	for _, r := range rels {
		var n int
		if _, err := fmt.Sscanf(r.ID, "rId%d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

// addContentTypeOverride registers a part in the content-types manifest.
func (p *pkg) addContentTypeOverride(partName, contentType string) error {
	doc, err := p.contentTypes()
	if err != nil {
		return err
	}
	root := doc.Root()
	el := root.CreateElement("Override")
	el.CreateAttr("PartName", "/"+partName)
	el.CreateAttr("ContentType", contentType)
	return p.saveContentTypes(doc)
}

// removeContentTypeOverride drops a part's manifest entry, if present.
func (p *pkg) removeContentTypeOverride(partName string) error {
	doc, err := p.contentTypes()
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, el := range root.ChildElements() {
		if el.Tag == "Override" && el.SelectAttrValue("PartName", "") == "/"+partName {
			root.RemoveChild(el)
			break
		}
	}
	return p.saveContentTypes(doc)
}

func (p *pkg) contentTypes() (*etree.Document, error) {
	data := p.parts[contentTypesPart]
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", contentTypesPart, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("empty %s", contentTypesPart)
	}
	return doc, nil
}

func (p *pkg) saveContentTypes(doc *etree.Document) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", contentTypesPart, err)
	}
	p.setPart(contentTypesPart, data)
	return nil
}
