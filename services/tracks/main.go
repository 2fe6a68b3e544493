// Package tracks prepares the genome browser working copy of an imported
// variation: reference sequences, a variant density track, a genome
// features track and the raw variant track.
package tracks

import (
	"strings"

	"variationutil/api/services/metadata"
)

const (
	SeqChunkSize  = 20000
	FormatVersion = 1

	storeGff3Tabix = "JBrowse/Store/SeqFeature/GFF3Tabix"
	storeBigWig    = "JBrowse/Store/SeqFeature/BigWig"
	storeVcfTabix  = "JBrowse/Store/SeqFeature/VCFTabix"

	viewCanvasFeatures = "JBrowse/View/Track/CanvasFeatures"
	viewXYPlot         = "JBrowse/View/Track/Wiggle/XYPlot"
	viewHtmlVariants   = "JBrowse/View/Track/HTMLVariants"
)

type (
	RefSeq struct {
		Name         string `json:"name"`
		Start        int64  `json:"start"`
		End          int64  `json:"end"`
		Length       int64  `json:"length"`
		SeqChunkSize int    `json:"seqChunkSize"`
	}

	Track struct {
		Label          string `json:"label"`
		Key            string `json:"key"`
		StoreClass     string `json:"storeClass"`
		UrlTemplate    string `json:"urlTemplate"`
		TbiUrlTemplate string `json:"tbiUrlTemplate,omitempty"`
		Type           string `json:"type"`
	}

	TrackList struct {
		FormatVersion int     `json:"formatVersion"`
		Tracks        []Track `json:"tracks"`
	}
)

// RefSeqs describes every assembly contig, in assembly order.
func RefSeqs(contigs []metadata.Contig) []RefSeq {
	out := make([]RefSeq, 0, len(contigs))
	for _, c := range contigs {
		out = append(out, RefSeq{
			Name:         c.ContigId,
			Start:        0,
			End:          c.Length,
			Length:       c.Length,
			SeqChunkSize: SeqChunkSize,
		})
	}
	return out
}

func urlTemplate(fileServiceUrl string, handleId string) string {
	return strings.TrimRight(fileServiceUrl, "/") + "/" + handleId
}

func GenomeFeaturesTrack(fileServiceUrl, gffId, gffIndexId string) Track {
	return Track{
		Label:          "Genome Features",
		Key:            "GenomeFeatures",
		StoreClass:     storeGff3Tabix,
		UrlTemplate:    urlTemplate(fileServiceUrl, gffId),
		TbiUrlTemplate: urlTemplate(fileServiceUrl, gffIndexId),
		Type:           viewCanvasFeatures,
	}
}

// DensityTrack keeps the label browsers already have bookmarked, typo
// included.
func DensityTrack(fileServiceUrl, bigWigId string) Track {
	return Track{
		Label:       "Variation Densityy",
		Key:         "Variation_density",
		StoreClass:  storeBigWig,
		UrlTemplate: urlTemplate(fileServiceUrl, bigWigId),
		Type:        viewXYPlot,
	}
}

func VariantTrack(fileServiceUrl, vcfId, vcfIndexId string) Track {
	return Track{
		Label:          "Variation",
		Key:            "Variation",
		StoreClass:     storeVcfTabix,
		UrlTemplate:    urlTemplate(fileServiceUrl, vcfId),
		TbiUrlTemplate: urlTemplate(fileServiceUrl, vcfIndexId),
		Type:           viewHtmlVariants,
	}
}
