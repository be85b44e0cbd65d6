package mongo

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

func TestReportScopeFilter(t *testing.T) {
	cases := []struct {
		name  string
		scope domain.Scope
		want  bson.M
	}{
		{
			name:  "unrestricted scope only excludes deleted",
			scope: domain.Scope{All: true},
			want:  bson.M{"is_deleted": false},
		},
		{
			name:  "tenant scope",
			scope: domain.Scope{TenantID: "t1"},
			want:  bson.M{"is_deleted": false, "tenant_id": "t1"},
		},
		{
			name:  "department scope",
			scope: domain.Scope{TenantID: "t1", Department: "roads"},
			want:  bson.M{"is_deleted": false, "tenant_id": "t1", "department": "roads"},
		},
		{
			name:  "reporter scope",
			scope: domain.Scope{TenantID: "t1", ReporterID: "u1"},
			want:  bson.M{"is_deleted": false, "tenant_id": "t1", "reporter_id": "u1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reportScopeFilter(tc.scope)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("filter = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAnalyticsMatch_RefinementCannotWidenDepartment(t *testing.T) {
	// A department manager scoped to "roads" asking for another department
	// must keep the scope predicate; both end up ANDed together.
	scope := domain.Scope{TenantID: "t1", Department: "roads"}
	match := analyticsMatch(scope, ports.AnalyticsFilter{Department: "water"})

	if _, ok := match["department"]; ok {
		t.Fatalf("department predicate was overwritten: %v", match)
	}
	and, ok := match["$and"].(bson.A)
	if !ok {
		t.Fatalf("expected $and in match, got %v", match)
	}
	wantScope := bson.M{"department": "roads"}
	wantRefine := bson.M{"department": "water"}
	if !reflect.DeepEqual(and[0], wantScope) || !reflect.DeepEqual(and[1], wantRefine) {
		t.Errorf("$and = %v, want scope then refinement", and)
	}
	if match["tenant_id"] != "t1" {
		t.Errorf("tenant predicate lost: %v", match)
	}
}

func TestAnalyticsMatch_MatchingDepartmentStillNarrows(t *testing.T) {
	scope := domain.Scope{TenantID: "t1"}
	match := analyticsMatch(scope, ports.AnalyticsFilter{Department: "water", Type: "pothole"})

	if match["department"] != "water" {
		t.Errorf("department = %v, want water", match["department"])
	}
	if match["type"] != "pothole" {
		t.Errorf("type = %v, want pothole", match["type"])
	}
}

func TestRefine_KeepsCitizenReporterRestriction(t *testing.T) {
	// TopUsers grouping by reporter_id adds a non-empty check on the same
	// key a citizen's scope restricts to their own id.
	match := analyticsMatch(domain.Scope{TenantID: "t1", ReporterID: "u1"}, ports.AnalyticsFilter{})
	refine(match, "reporter_id", bson.M{"$exists": true, "$ne": ""})

	if _, ok := match["reporter_id"]; ok {
		t.Fatalf("reporter predicate was overwritten: %v", match)
	}
	and, ok := match["$and"].(bson.A)
	if !ok || len(and) != 2 {
		t.Fatalf("expected two $and clauses, got %v", match)
	}
	if !reflect.DeepEqual(and[0], bson.M{"reporter_id": "u1"}) {
		t.Errorf("scope clause = %v, want reporter_id u1", and[0])
	}
}

func TestRefine_NewKeySetsDirectly(t *testing.T) {
	filter := bson.M{"tenant_id": "t1"}
	refine(filter, "priority", "urgent")
	if filter["priority"] != "urgent" {
		t.Errorf("priority = %v, want urgent", filter["priority"])
	}
	if _, ok := filter["$and"]; ok {
		t.Errorf("no $and expected for a fresh key: %v", filter)
	}
}

func TestTrendPipeline_ByTypeCapsBucketsNotRows(t *testing.T) {
	scope := domain.Scope{TenantID: "t1"}

	pipeline := trendPipeline(scope, ports.AnalyticsFilter{}, "day", 7, true)

	// In by-type mode the cap must apply after the rows are regrouped per
	// bucket, otherwise types fall out of the oldest bucket.
	limitAt := -1
	for i, stage := range pipeline {
		if _, ok := stage["$limit"]; ok {
			limitAt = i
			break
		}
	}
	if limitAt < 2 || limitAt+1 >= len(pipeline) {
		t.Fatalf("pipeline has no properly placed $limit stage: %v", pipeline)
	}
	prev, ok := pipeline[limitAt-2]["$group"].(bson.M)
	if !ok {
		t.Fatalf("expected a per-bucket $group before the cap, got %v", pipeline[limitAt-2])
	}
	if prev["_id"] != "$_id.bucket" {
		t.Errorf("regroup key = %v, want $_id.bucket", prev["_id"])
	}
	if _, ok := pipeline[limitAt+1]["$unwind"]; !ok {
		t.Errorf("expected $unwind after the cap, got %v", pipeline[limitAt+1])
	}
}

func TestTrendPipeline_PlainModeCapsBuckets(t *testing.T) {
	pipeline := trendPipeline(domain.Scope{TenantID: "t1"}, ports.AnalyticsFilter{}, "month", 12, false)

	last := pipeline[len(pipeline)-1]
	if last["$limit"] != 12 {
		t.Errorf("final stage = %v, want $limit 12", last)
	}
	sort, ok := pipeline[len(pipeline)-2]["$sort"].(bson.M)
	if !ok || sort["_id.bucket"] != -1 {
		t.Errorf("expected newest-first sort before the cap, got %v", pipeline[len(pipeline)-2])
	}
}
