package deck

import (
	"math/rand"
	"strconv"

	"github.com/beevik/etree"
)

// Asset is one reusable image found in the uploaded template: the media part
// it lives in and the extent it was originally displayed at, in EMU.
type Asset struct {
	MediaPath string
	CX        int64
	CY        int64
}

// harvestImages scans the template's existing slides (before they are
// purged) for pictures and records each one once per appearance, then
// shuffles the pool so decks built from the same template vary.
func harvestImages(pr *presentation, rng *rand.Rand) ([]Asset, error) {
	var pool []Asset
	for _, slidePath := range pr.slidePaths() {
		raw, ok := pr.pkg.part(slidePath)
		if !ok {
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(raw); err != nil {
			continue // unreadable slide, nothing to harvest
		}
		rels, err := pr.pkg.readRels(slidePath)
		if err != nil {
			return nil, err
		}
		for _, pic := range doc.FindElements("//p:pic") {
			blip := pic.FindElement("p:blipFill/a:blip")
			if blip == nil {
				continue
			}
			rid := blip.SelectAttrValue("r:embed", "")
			mediaPath, ok := lookupRel(rels, rid, slidePath)
			if !ok || !pr.pkg.hasPart(mediaPath) {
				continue
			}
			asset := Asset{MediaPath: mediaPath}
			if ext := pic.FindElement("p:spPr/a:xfrm/a:ext"); ext != nil {
				asset.CX, _ = strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
				asset.CY, _ = strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
			}
			if asset.CX > 0 && asset.CY > 0 {
				pool = append(pool, asset)
			}
		}
	}
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool, nil
}
