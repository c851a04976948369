package storage

import "testing"

func TestDocumentID_StablePerURL(t *testing.T) {
	url := "https://immi.homeaffairs.gov.au/visas/getting-a-visa/visa-listing"
	if DocumentID(url) != DocumentID(url) {
		t.Error("same URL must always map to the same point ID")
	}
	if DocumentID(url) == DocumentID(url+"/student-500") {
		t.Error("different URLs must map to different point IDs")
	}
}

func TestChunkID_DistinctPerIndex(t *testing.T) {
	url := "https://www.legislation.gov.au/C1958A00062/latest"
	if ChunkID(url, 0) == ChunkID(url, 1) {
		t.Error("chunk IDs must differ per index")
	}
	if ChunkID(url, 0) == DocumentID(url) {
		t.Error("chunk ID must not collide with its document ID")
	}
}
