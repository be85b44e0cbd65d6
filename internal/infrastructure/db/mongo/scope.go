package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// reportScopeFilter translates the resolved scope into the query predicate
// for the reports collection. This is the only place scope becomes a store
// filter; every repository method starts from it before adding refinements,
// so the tenant restriction is always the first predicate applied.
func reportScopeFilter(scope domain.Scope) bson.M {
	f := bson.M{"is_deleted": false}
	if scope.All {
		return f
	}
	f["tenant_id"] = scope.TenantID
	if scope.Department != "" {
		f["department"] = scope.Department
	}
	if scope.AssignedOrReporterID != "" {
		f["$or"] = bson.A{
			bson.M{"assigned_to": scope.AssignedOrReporterID},
			bson.M{"reporter_id": scope.AssignedOrReporterID},
		}
	}
	if scope.ReporterID != "" {
		f["reporter_id"] = scope.ReporterID
	}
	return f
}

// refine ANDs an extra predicate onto the filter. When the key is already
// present the scope put it there; the refinement must narrow that predicate,
// never replace it, so both are moved into $and clauses.
func refine(filter bson.M, key string, value any) {
	existing, ok := filter[key]
	if !ok {
		filter[key] = value
		return
	}
	and, _ := filter["$and"].(bson.A)
	and = append(and, bson.M{key: existing}, bson.M{key: value})
	filter["$and"] = and
	delete(filter, key)
}
