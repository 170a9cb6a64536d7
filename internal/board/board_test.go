package board

import "testing"

// Neither board runs an attitude estimator; the butterfly quaternion
// register holds a resting pattern and must not be advertised as fusion.
func TestBoardsReportNoFusion(t *testing.T) {
	if (&Butterfly{}).HasFusion() {
		t.Fatal("butterfly claims fusion for its placeholder quaternion")
	}
	if (&F3Evo{}).HasFusion() {
		t.Fatal("f3evo claims fusion")
	}
}
