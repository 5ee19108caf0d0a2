// Package harness plays YAML scenarios against the simulation and checks
// the causal graph each turn produces.
//
// A scenario names a CUE world and lists turns. Every turn queues the
// given commands, steps the simulation once and then evaluates its
// assertions against the turn's live graph, before the next turn resets
// it:
//
//	name: duel
//	description: Hero and Orc trade blows until the Orc falls.
//	world: ../worlds/arena.cue
//	turns:
//	  - commands:
//	      - {actor: Hero, action: attack, target: Orc}
//	    expect:
//	      - {type: count, kind: Damage, count: 1}
//	      - {type: ancestor, kind: Damage, match: Turn, fields: {actor: 1}}
//	      - {type: hp, entity: Orc, value: 2}
//
// Assertion types:
//   - count: number of nodes of a kind, optionally narrowed by field values
//   - order: first nodes of the listed kinds appear in that scan order
//   - ancestor: every node of a kind has a matching cause
//   - narration_contains: a narration line of the turn contains the text
//   - hp: an entity's hit points after the turn
//
// An optional golden transcript holds the narration of the whole run; see
// Result.Transcript. RunWithGolden additionally compares the last turn's
// DOT rendering using goldie.
package harness
