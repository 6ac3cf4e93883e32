package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Predicate is one typed filter condition on the geeks collection. Each
// predicate renders to a self-contained clause, so combining predicates never
// rewrites another predicate's operators.
type Predicate interface {
	// Clause renders the predicate as a bson filter fragment. An empty
	// (no-op) predicate returns nil.
	Clause() bson.M
}

// SkillFilter matches geeks whose primary skill is in IDs or whose secondary
// skills intersect IDs. The OR stays one atomic sub-condition regardless of
// what it is combined with.
type SkillFilter struct {
	IDs []primitive.ObjectID
}

func (f SkillFilter) Clause() bson.M {
	if len(f.IDs) == 0 {
		return nil
	}
	return bson.M{"$or": bson.A{
		bson.M{"primarySkill": bson.M{"$in": f.IDs}},
		bson.M{"secondarySkills": bson.M{"$in": f.IDs}},
	}}
}

// BrandFilter restricts geeks to those servicing a device brand. Reserved
// extension point; inert until issue extraction starts carrying brands into
// the query.
type BrandFilter struct {
	Brand string
}

func (f BrandFilter) Clause() bson.M {
	if f.Brand == "" {
		return nil
	}
	return bson.M{"brands": f.Brand}
}

// ProximityFilter restricts geeks to a radius around a point. Reserved
// extension point, same status as BrandFilter.
type ProximityFilter struct {
	Point GeoPoint
}

func (f ProximityFilter) Clause() bson.M {
	near := bson.M{
		"$geometry": bson.M{
			"type":        "Point",
			"coordinates": bson.A{f.Point.Longitude, f.Point.Latitude},
		},
	}
	if f.Point.MaxMeters > 0 {
		near["$maxDistance"] = f.Point.MaxMeters
	}
	return bson.M{"location": bson.M{"$near": near}}
}

// And combines predicates as top-level AND conditions. No-op predicates are
// skipped; zero remaining clauses mean an unfiltered query.
func And(preds ...Predicate) bson.M {
	clauses := make(bson.A, 0, len(preds))
	for _, p := range preds {
		if c := p.Clause(); c != nil {
			clauses = append(clauses, c)
		}
	}
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	default:
		return bson.M{"$and": clauses}
	}
}

// queryPredicates expands a GeekQuery into its predicate list.
func queryPredicates(q GeekQuery) []Predicate {
	preds := []Predicate{SkillFilter{IDs: q.SkillIDs}}
	if q.Brand != "" {
		preds = append(preds, BrandFilter{Brand: q.Brand})
	}
	if q.Near != nil {
		preds = append(preds, ProximityFilter{Point: *q.Near})
	}
	return preds
}
