package deck

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

const (
	nsDrawingML    = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentation = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsOfficeRel    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	presentationPart = "ppt/presentation.xml"
)

// layoutRef is one slide layout of the template: its part path and its
// human-facing name, the thing layout-hint matching runs against.
type layoutRef struct {
	Path string
	Name string
}

// presentation wraps the package with presentation-level operations: slide
// enumeration, layout enumeration, purging, and slide creation.
//
// PowerPoint and every mainstream producer emit the conventional "p", "a",
// and "r" namespace prefixes, so part XML is navigated by prefixed tag. A
// template using exotic prefixes would fail to open cleanly long before this
// code ran, because its layouts would be invisible to the matcher.
type presentation struct {
	pkg  *pkg
	doc  *etree.Document // ppt/presentation.xml
	rels []relationship  // its relationships

	layouts []layoutRef

	nextSlideNum int // next slideN.xml / notesSlideN.xml part number
}

func openPresentation(data []byte) (*presentation, error) {
	pk, err := openPackage(data)
	if err != nil {
		return nil, err
	}

	raw, ok := pk.part(presentationPart)
	if !ok {
		return nil, fmt.Errorf("package has no %s part", presentationPart)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", presentationPart, err)
	}
	rels, err := pk.readRels(presentationPart)
	if err != nil {
		return nil, err
	}

	pres := &presentation{pkg: pk, doc: doc, rels: rels, nextSlideNum: 1}
	if err := pres.loadLayouts(); err != nil {
		return nil, err
	}
	if len(pres.layouts) == 0 {
		return nil, fmt.Errorf("template has no slide layouts")
	}
	return pres, nil
}

// loadLayouts walks the masters in presentation order and collects each
// master's layouts in declaration order, matching how presentation software
// presents the layout list.
func (pr *presentation) loadLayouts() error {
	masterList := pr.doc.FindElement("//p:sldMasterIdLst")
	if masterList == nil {
		return nil
	}
	for _, idEl := range masterList.ChildElements() {
		rid := idEl.SelectAttrValue("r:id", "")
		masterPath, ok := pr.resolveRel(rid)
		if !ok {
			continue
		}
		masterRaw, ok := pr.pkg.part(masterPath)
		if !ok {
			continue
		}
		masterDoc := etree.NewDocument()
		if err := masterDoc.ReadFromBytes(masterRaw); err != nil {
			return fmt.Errorf("parse %s: %w", masterPath, err)
		}
		masterRels, err := pr.pkg.readRels(masterPath)
		if err != nil {
			return err
		}
		layoutList := masterDoc.FindElement("//p:sldLayoutIdLst")
		if layoutList == nil {
			continue
		}
		for _, layoutID := range layoutList.ChildElements() {
			lrid := layoutID.SelectAttrValue("r:id", "")
			layoutPath, ok := lookupRel(masterRels, lrid, masterPath)
			if !ok {
				continue
			}
			name, err := pr.layoutName(layoutPath)
			if err != nil {
				return err
			}
			pr.layouts = append(pr.layouts, layoutRef{Path: layoutPath, Name: name})
		}
	}
	return nil
}

func (pr *presentation) layoutName(layoutPath string) (string, error) {
	raw, ok := pr.pkg.part(layoutPath)
	if !ok {
		return "", fmt.Errorf("missing layout part %s", layoutPath)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return "", fmt.Errorf("parse %s: %w", layoutPath, err)
	}
	if cSld := doc.FindElement("//p:cSld"); cSld != nil {
		return cSld.SelectAttrValue("name", ""), nil
	}
	return "", nil
}

func (pr *presentation) resolveRel(rid string) (string, bool) {
	return lookupRel(pr.rels, rid, presentationPart)
}

func lookupRel(rels []relationship, rid, sourcePart string) (string, bool) {
	for _, r := range rels {
		if r.ID == rid && r.Mode != "External" {
			return resolveTarget(sourcePart, r.Target), true
		}
	}
	return "", false
}

// slidePaths returns the existing slides' part paths in sldIdLst order.
func (pr *presentation) slidePaths() []string {
	list := pr.doc.FindElement("//p:sldIdLst")
	if list == nil {
		return nil
	}
	var paths []string
	for _, idEl := range list.ChildElements() {
		rid := idEl.SelectAttrValue("r:id", "")
		if p, ok := pr.resolveRel(rid); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

// purgeSlides removes every pre-existing slide (and its notes slide) while
// keeping masters, layouts, theme, and media parts intact.
func (pr *presentation) purgeSlides() error {
	list := pr.doc.FindElement("//p:sldIdLst")
	if list == nil {
		return nil
	}

	for _, idEl := range append([]*etree.Element(nil), list.ChildElements()...) {
		rid := idEl.SelectAttrValue("r:id", "")
		slidePath, ok := pr.resolveRel(rid)
		if ok {
			if err := pr.dropSlideParts(slidePath); err != nil {
				return err
			}
		}
		pr.removeRel(rid)
		list.RemoveChild(idEl)
	}
	return nil
}

// dropSlideParts deletes a slide part, its rels, its notes slide (if any),
// and the matching content-type overrides.
func (pr *presentation) dropSlideParts(slidePath string) error {
	slideRels, err := pr.pkg.readRels(slidePath)
	if err != nil {
		return err
	}
	for _, r := range slideRels {
		if r.Type == relTypeNotesSlide && r.Mode != "External" {
			notesPath := resolveTarget(slidePath, r.Target)
			pr.pkg.removePart(notesPath)
			pr.pkg.removePart(relsPath(notesPath))
			if err := pr.pkg.removeContentTypeOverride(notesPath); err != nil {
				return err
			}
		}
	}
	pr.pkg.removePart(slidePath)
	pr.pkg.removePart(relsPath(slidePath))
	return pr.pkg.removeContentTypeOverride(slidePath)
}

func (pr *presentation) removeRel(rid string) {
	for i, r := range pr.rels {
		if r.ID == rid {
			pr.rels = append(pr.rels[:i], pr.rels[i+1:]...)
			return
		}
	}
}

// notesMasterPath returns the template's notes master part, if it has one.
func (pr *presentation) notesMasterPath() (string, bool) {
	list := pr.doc.FindElement("//p:notesMasterIdLst")
	if list == nil {
		return "", false
	}
	for _, idEl := range list.ChildElements() {
		rid := idEl.SelectAttrValue("r:id", "")
		if p, ok := pr.resolveRel(rid); ok && pr.pkg.hasPart(p) {
			return p, true
		}
	}
	return "", false
}

// addSlide creates a fresh slide from the given layout: a new slide part
// whose placeholders are cloned (text cleared) from the layout, wired into
// the presentation's slide list.
func (pr *presentation) addSlide(layout layoutRef) (*slide, error) {
	num := pr.nextSlideNum
	pr.nextSlideNum++
	slidePath := fmt.Sprintf("ppt/slides/slide%d.xml", num)
	for pr.pkg.hasPart(slidePath) {
		num = pr.nextSlideNum
		pr.nextSlideNum++
		slidePath = fmt.Sprintf("ppt/slides/slide%d.xml", num)
	}

	doc, maxShapeID, err := pr.newSlideDoc(layout)
	if err != nil {
		return nil, err
	}

	s := &slide{
		pres:        pr,
		path:        slidePath,
		num:         num,
		doc:         doc,
		nextShapeID: maxShapeID + 1,
		rels: []relationship{{
			ID:     "rId1",
			Type:   relTypeSlideLayout,
			Target: relativeTarget(slidePath, layout.Path),
		}},
	}

	// Wire the slide into the presentation: content type, presentation rel,
	// sldIdLst entry.
	if err := pr.pkg.addContentTypeOverride(slidePath, ctSlide); err != nil {
		return nil, err
	}
	rid := nextRelID(pr.rels)
	pr.rels = append(pr.rels, relationship{
		ID:     rid,
		Type:   relTypeSlide,
		Target: relativeTarget(presentationPart, slidePath),
	})

	list := pr.doc.FindElement("//p:sldIdLst")
	if list == nil {
		root := pr.doc.Root()
		list = etree.NewElement("p:sldIdLst")
		// sldIdLst must precede sldSz per the schema sequence.
		insertAt := len(root.ChildElements())
		for i, child := range root.ChildElements() {
			if child.Tag == "sldSz" || child.Tag == "notesSz" {
				insertAt = i
				break
			}
		}
		root.InsertChildAt(insertAt, list)
	}
	idEl := list.CreateElement("p:sldId")
	idEl.CreateAttr("id", strconv.Itoa(pr.nextSlideID()))
	idEl.CreateAttr("r:id", rid)

	return s, nil
}

// nextSlideID picks an unused sldId value (the schema requires >= 256).
func (pr *presentation) nextSlideID() int {
	max := 255
	if list := pr.doc.FindElement("//p:sldIdLst"); list != nil {
		for _, idEl := range list.ChildElements() {
			if n, err := strconv.Atoi(idEl.SelectAttrValue("id", "")); err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}

// newSlideDoc builds the slide XML: the standard group-shape scaffolding
// plus the layout's placeholder shapes, deep-copied with their text removed
// so layout prompt text ("Click to edit...") does not leak into the deck.
func (pr *presentation) newSlideDoc(layout layoutRef) (*etree.Document, int, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("p:sld")
	root.CreateAttr("xmlns:a", nsDrawingML)
	root.CreateAttr("xmlns:r", nsOfficeRel)
	root.CreateAttr("xmlns:p", nsPresentation)

	cSld := root.CreateElement("p:cSld")
	spTree := cSld.CreateElement("p:spTree")

	nvGrp := spTree.CreateElement("p:nvGrpSpPr")
	cNvPr := nvGrp.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", "1")
	cNvPr.CreateAttr("name", "")
	nvGrp.CreateElement("p:cNvGrpSpPr")
	nvGrp.CreateElement("p:nvPr")

	grpSpPr := spTree.CreateElement("p:grpSpPr")
	xfrm := grpSpPr.CreateElement("a:xfrm")
	for _, tag := range []string{"a:off", "a:chOff"} {
		el := xfrm.CreateElement(tag)
		el.CreateAttr("x", "0")
		el.CreateAttr("y", "0")
	}
	for _, tag := range []string{"a:ext", "a:chExt"} {
		el := xfrm.CreateElement(tag)
		el.CreateAttr("cx", "0")
		el.CreateAttr("cy", "0")
	}

	maxShapeID := 1
	layoutRaw, ok := pr.pkg.part(layout.Path)
	if !ok {
		return nil, 0, fmt.Errorf("missing layout part %s", layout.Path)
	}
	layoutDoc := etree.NewDocument()
	if err := layoutDoc.ReadFromBytes(layoutRaw); err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", layout.Path, err)
	}
	for _, sp := range layoutDoc.FindElements("//p:spTree/p:sp") {
		if sp.FindElement("p:nvSpPr/p:nvPr/p:ph") == nil {
			continue // only placeholders carry over
		}
		clone := sp.Copy()
		maxShapeID++
		if id := clone.FindElement("p:nvSpPr/p:cNvPr"); id != nil {
			id.CreateAttr("id", strconv.Itoa(maxShapeID))
		}
		clearTextBody(clone)
		spTree.AddChild(clone)
	}

	clrMapOvr := root.CreateElement("p:clrMapOvr")
	clrMapOvr.CreateElement("a:masterClrMapping")

	return doc, maxShapeID, nil
}

// clearTextBody strips all paragraphs from a shape's text body, leaving one
// empty paragraph (a txBody must contain at least one a:p).
func clearTextBody(sp *etree.Element) {
	txBody := sp.FindElement("p:txBody")
	if txBody == nil {
		return
	}
	for _, p := range txBody.SelectElements("a:p") {
		txBody.RemoveChild(p)
	}
	txBody.CreateElement("a:p")
}

// save serializes the mutated presentation part and rels back into the
// package and returns the finished file.
func (pr *presentation) save(pending []*slide) ([]byte, error) {
	for _, s := range pending {
		if err := s.flush(); err != nil {
			return nil, err
		}
	}

	data, err := pr.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", presentationPart, err)
	}
	pr.pkg.setPart(presentationPart, data)
	if err := pr.pkg.writeRels(presentationPart, pr.rels); err != nil {
		return nil, err
	}
	return pr.pkg.bytes()
}
