package store

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAndSkillFilterAlone(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}

	got := And(SkillFilter{IDs: ids})
	want := bson.M{"$or": bson.A{
		bson.M{"primarySkill": bson.M{"$in": ids}},
		bson.M{"secondarySkills": bson.M{"$in": ids}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected filter: %#v", got)
	}
}

func TestAndKeepsSkillClauseAtomic(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID()}

	got := And(SkillFilter{IDs: ids}, BrandFilter{Brand: "Samsung"})

	clauses, ok := got["$and"].(bson.A)
	if !ok {
		t.Fatalf("expected top-level $and, got %#v", got)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}

	skill := clauses[0].(bson.M)
	if _, ok := skill["$or"]; !ok {
		t.Fatalf("skill OR-clause was rewritten: %#v", skill)
	}
	brand := clauses[1].(bson.M)
	if brand["brands"] != "Samsung" {
		t.Fatalf("unexpected brand clause: %#v", brand)
	}
}

func TestAndEmptyPredicatesMeanUnfiltered(t *testing.T) {
	got := And(SkillFilter{}, BrandFilter{})
	if len(got) != 0 {
		t.Fatalf("expected empty filter, got %#v", got)
	}
}

func TestProximityFilterClause(t *testing.T) {
	f := ProximityFilter{Point: GeoPoint{Longitude: 77.59, Latitude: 12.97, MaxMeters: 5000}}

	clause := f.Clause()
	near := clause["location"].(bson.M)["$near"].(bson.M)
	if near["$maxDistance"] != float64(5000) {
		t.Fatalf("unexpected max distance: %#v", near)
	}
	geometry := near["$geometry"].(bson.M)
	if geometry["type"] != "Point" {
		t.Fatalf("unexpected geometry: %#v", geometry)
	}
}

func TestQueryPredicatesExpansion(t *testing.T) {
	q := GeekQuery{
		SkillIDs: []primitive.ObjectID{primitive.NewObjectID()},
		Brand:    "LG",
		Near:     &GeoPoint{Longitude: 1, Latitude: 2},
	}
	if got := len(queryPredicates(q)); got != 3 {
		t.Fatalf("expected 3 predicates, got %d", got)
	}

	if got := len(queryPredicates(GeekQuery{})); got != 1 {
		t.Fatalf("expected only the skill predicate, got %d", got)
	}
}
