// Package engine builds shape-marked grid worlds and runs the agent
// transition rule over them.
//
// The engine package implements:
//   - Wall topologies: plain border, donut bar, square donut, lava donut,
//     T-partition and a lattice of gated rooms
//   - Shape stamping from fixed 6x6 templates at computed anchors
//   - Agent seeding through an injected random source
//   - The rotate / move / collide / terminate transition rule
//   - Named episode presets and their JSON or YAML files
//
// Core Types:
//
// Build turns GenerationParams into a Grid and an initial Pose. Episode
// applies actions to that pose and reports rewards and termination.
// GameEngine wraps an Episode with history, resets and snapshots and is
// what the service layer drives.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("", "donut-16")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config, 42)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := gameEngine.Step(engine.MoveForward)
//	state := gameEngine.GetState()
//
// Transition Rules:
//
// Rotations turn the agent a quarter turn. Moving into a wall is a no-op
// bump. Moving onto fake lava or a goal ends the episode with the terminal
// reward. Lava blocks the move and ends the episode with the negated
// penalty. Reaching the step budget truncates the episode.
package engine
