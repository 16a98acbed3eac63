// Package modelrt is the runtime support library for code emitted by modelgen.
//
// Generated models store their containers in the immutable List and Map
// types defined here and stage them through ListBuilder and MapBuilder,
// whose mutation API only appends. Every generated type also binds a
// Serializer, and the generated serializers.go file of each model package
// registers those serializers with the package-level Registry so that
// persistence and cache layers can look them up by type name.
//
// Template files name these types directly:
//
//	type _UserProfile struct {
//		Roles modelrt.List[string]     `default:"['user','default']"`
//		Score modelrt.Map[string, int] `default:"{math: 90}"`
//	}
package modelrt
