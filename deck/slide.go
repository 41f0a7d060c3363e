package deck

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// emuPerInch is the OOXML coordinate unit (English Metric Units).
const emuPerInch = 914400

// Font sizes are hundredths of a point in DrawingML.
const (
	titleShrinkSize  = 2000 // 20pt, applied to long titles
	bulletShrinkSize = 1600 // 16pt, applied to long bullets
)

const (
	maxTitleRunes   = 200
	titleShrinkLen  = 70
	maxBullets      = 12
	bulletShrinkLen = 80
)

// slide is one generated slide under construction. Mutations accumulate in
// the etree document and rels until flush writes them into the package.
type slide struct {
	pres *presentation
	path string
	num  int
	doc  *etree.Document
	rels []relationship

	nextShapeID int
	titleShape  *etree.Element
}

func phType(sp *etree.Element) (string, bool) {
	ph := sp.FindElement("p:nvSpPr/p:nvPr/p:ph")
	if ph == nil {
		return "", false
	}
	return ph.SelectAttrValue("type", ""), true
}

// findTitlePlaceholder returns the first title-capable placeholder: one
// whose ph type is title, ctrTitle, or subTitle.
func (s *slide) findTitlePlaceholder() *etree.Element {
	for _, sp := range s.doc.FindElements("//p:spTree/p:sp") {
		t, ok := phType(sp)
		if !ok {
			continue
		}
		switch t {
		case "title", "ctrTitle", "subTitle":
			return sp
		}
	}
	return nil
}

// findBodyPlaceholder returns the first body-capable placeholder: ph type
// "body", or an untyped placeholder not already claimed as the title. Any
// remaining placeholder with a text body serves as a last resort.
func (s *slide) findBodyPlaceholder() *etree.Element {
	for _, sp := range s.doc.FindElements("//p:spTree/p:sp") {
		t, ok := phType(sp)
		if !ok || sp == s.titleShape {
			continue
		}
		if t == "body" || t == "" {
			return sp
		}
	}
	for _, sp := range s.doc.FindElements("//p:spTree/p:sp") {
		if _, ok := phType(sp); !ok || sp == s.titleShape {
			continue
		}
		if sp.FindElement("p:txBody") != nil {
			return sp
		}
	}
	return nil
}

// setTitle places the slide title, truncating runaway titles and shrinking
// the font for long ones. It falls back to a plain textbox when the layout
// offers no title placeholder.
func (s *slide) setTitle(title string) error {
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	size := 0
	if len([]rune(title)) > titleShrinkLen {
		size = titleShrinkSize
	}

	sp := s.findTitlePlaceholder()
	if sp == nil {
		s.addTextbox("Title", title, size, inches(1), inches(0.7), inches(8), inches(1))
		return nil
	}
	s.titleShape = sp
	setShapeText(sp, title, size)
	return nil
}

// setBullets fills the body placeholder with up to maxBullets level-0
// paragraphs, or a fallback textbox when no body placeholder exists.
func (s *slide) setBullets(bullets []string) error {
	if len(bullets) > maxBullets {
		bullets = bullets[:maxBullets]
	}
	if len(bullets) == 0 {
		return nil
	}

	sp := s.findBodyPlaceholder()
	if sp == nil {
		s.addBulletTextbox("Content", bullets, inches(1), inches(1.7), inches(8), inches(4.5))
		return nil
	}
	txBody := ensureTxBody(sp)
	for _, p := range txBody.SelectElements("a:p") {
		txBody.RemoveChild(p)
	}
	for _, b := range bullets {
		appendBulletParagraph(txBody, b)
	}
	return nil
}

// setShapeText replaces a shape's text with a single paragraph. size is in
// hundredths of a point; zero keeps the inherited size.
func setShapeText(sp *etree.Element, text string, size int) {
	txBody := ensureTxBody(sp)
	for _, p := range txBody.SelectElements("a:p") {
		txBody.RemoveChild(p)
	}
	p := txBody.CreateElement("a:p")
	appendRun(p, text, size)
}

func ensureTxBody(sp *etree.Element) *etree.Element {
	if txBody := sp.FindElement("p:txBody"); txBody != nil {
		return txBody
	}
	txBody := sp.CreateElement("p:txBody")
	txBody.CreateElement("a:bodyPr")
	txBody.CreateElement("a:lstStyle")
	return txBody
}

func appendBulletParagraph(txBody *etree.Element, text string) {
	p := txBody.CreateElement("a:p")
	pPr := p.CreateElement("a:pPr")
	pPr.CreateAttr("lvl", "0")
	size := 0
	if len([]rune(text)) > bulletShrinkLen {
		size = bulletShrinkSize
	}
	appendRun(p, text, size)
}

func appendRun(p *etree.Element, text string, size int) {
	r := p.CreateElement("a:r")
	rPr := r.CreateElement("a:rPr")
	rPr.CreateAttr("lang", "en-US")
	rPr.CreateAttr("dirty", "0")
	if size > 0 {
		rPr.CreateAttr("sz", strconv.Itoa(size))
	}
	r.CreateElement("a:t").SetText(text)
}

func inches(in float64) int64 {
	return int64(in * emuPerInch)
}

// addTextbox drops a plain positioned textbox onto the slide, used when a
// layout lacks the placeholder a piece of content needs.
func (s *slide) addTextbox(name, text string, size int, x, y, cx, cy int64) *etree.Element {
	sp := s.newTextboxShape(name, x, y, cx, cy)
	txBody := sp.FindElement("p:txBody")
	p := txBody.CreateElement("a:p")
	appendRun(p, text, size)
	return sp
}

func (s *slide) addBulletTextbox(name string, bullets []string, x, y, cx, cy int64) *etree.Element {
	sp := s.newTextboxShape(name, x, y, cx, cy)
	txBody := sp.FindElement("p:txBody")
	for _, b := range bullets {
		appendBulletParagraph(txBody, b)
	}
	return sp
}

func (s *slide) newTextboxShape(name string, x, y, cx, cy int64) *etree.Element {
	spTree := s.doc.FindElement("//p:spTree")
	sp := spTree.CreateElement("p:sp")

	nvSpPr := sp.CreateElement("p:nvSpPr")
	cNvPr := nvSpPr.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(s.takeShapeID()))
	cNvPr.CreateAttr("name", name)
	cNvSpPr := nvSpPr.CreateElement("p:cNvSpPr")
	cNvSpPr.CreateElement("a:spLocks").CreateAttr("noGrp", "1")
	nvSpPr.CreateElement("p:nvPr")

	spPr := sp.CreateElement("p:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", strconv.FormatInt(x, 10))
	off.CreateAttr("y", strconv.FormatInt(y, 10))
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.FormatInt(cx, 10))
	ext.CreateAttr("cy", strconv.FormatInt(cy, 10))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")

	txBody := sp.CreateElement("p:txBody")
	bodyPr := txBody.CreateElement("a:bodyPr")
	bodyPr.CreateAttr("wrap", "square")
	txBody.CreateElement("a:lstStyle")
	return sp
}

func (s *slide) takeShapeID() int {
	id := s.nextShapeID
	s.nextShapeID++
	return id
}

// addPicture places a harvested template image on the slide, referencing a
// media part the package still carries. Width is scaled from the asset's
// native aspect ratio against the fixed height.
func (s *slide) addPicture(asset Asset, x, y, cy int64) error {
	if asset.CY <= 0 || asset.CX <= 0 {
		return fmt.Errorf("image %s has no usable extent", asset.MediaPath)
	}
	cx := int64(float64(cy) * float64(asset.CX) / float64(asset.CY))

	rid := nextRelID(s.rels)
	s.rels = append(s.rels, relationship{
		ID:     rid,
		Type:   relTypeImage,
		Target: relativeTarget(s.path, asset.MediaPath),
	})

	spTree := s.doc.FindElement("//p:spTree")
	pic := spTree.CreateElement("p:pic")

	nvPicPr := pic.CreateElement("p:nvPicPr")
	cNvPr := nvPicPr.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(s.takeShapeID()))
	cNvPr.CreateAttr("name", "Picture")
	cNvPicPr := nvPicPr.CreateElement("p:cNvPicPr")
	cNvPicPr.CreateElement("a:picLocks").CreateAttr("noChangeAspect", "1")
	nvPicPr.CreateElement("p:nvPr")

	blipFill := pic.CreateElement("p:blipFill")
	blip := blipFill.CreateElement("a:blip")
	blip.CreateAttr("r:embed", rid)
	blipFill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("p:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", strconv.FormatInt(x, 10))
	off.CreateAttr("y", strconv.FormatInt(y, 10))
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.FormatInt(cx, 10))
	ext.CreateAttr("cy", strconv.FormatInt(cy, 10))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")

	return nil
}

// attachNotes creates a notes slide for this slide. The caller has already
// confirmed the template carries a notes master.
func (s *slide) attachNotes(notes, notesMasterPath string) error {
	notesPath := fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", s.num)
	for s.pres.pkg.hasPart(notesPath) {
		s.num++
		notesPath = fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", s.num)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("p:notes")
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

	sp := spTree.CreateElement("p:sp")
	nvSpPr := sp.CreateElement("p:nvSpPr")
	spCNvPr := nvSpPr.CreateElement("p:cNvPr")
	spCNvPr.CreateAttr("id", "2")
	spCNvPr.CreateAttr("name", "Notes Placeholder")
	cNvSpPr := nvSpPr.CreateElement("p:cNvSpPr")
	cNvSpPr.CreateElement("a:spLocks").CreateAttr("noGrp", "1")
	ph := nvSpPr.CreateElement("p:nvPr").CreateElement("p:ph")
	ph.CreateAttr("type", "body")
	ph.CreateAttr("idx", "1")
	sp.CreateElement("p:spPr")
	txBody := sp.CreateElement("p:txBody")
	txBody.CreateElement("a:bodyPr")
	txBody.CreateElement("a:lstStyle")
	p := txBody.CreateElement("a:p")
	appendRun(p, notes, 0)

	clrMapOvr := root.CreateElement("p:clrMapOvr")
	clrMapOvr.CreateElement("a:masterClrMapping")

	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", notesPath, err)
	}
	s.pres.pkg.setPart(notesPath, data)
	if err := s.pres.pkg.addContentTypeOverride(notesPath, ctNotesSlide); err != nil {
		return err
	}

	notesRels := []relationship{
		{ID: "rId1", Type: relTypeNotesMaster, Target: relativeTarget(notesPath, notesMasterPath)},
		{ID: "rId2", Type: relTypeSlide, Target: relativeTarget(notesPath, s.path)},
	}
	if err := s.pres.pkg.writeRels(notesPath, notesRels); err != nil {
		return err
	}

	rid := nextRelID(s.rels)
	s.rels = append(s.rels, relationship{
		ID:     rid,
		Type:   relTypeNotesSlide,
		Target: relativeTarget(s.path, notesPath),
	})
	return nil
}

// flush serializes the slide document and rels into the package.
func (s *slide) flush() error {
	data, err := s.doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", s.path, err)
	}
	s.pres.pkg.setPart(s.path, data)
	return s.pres.pkg.writeRels(s.path, s.rels)
}
