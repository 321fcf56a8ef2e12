// Package feed holds the catalog of simulated price feeds and the random-walk
// generator that publishes values for them. The generator is a stand-in for a
// real upstream source; anything that calls Publish on a fixed cadence is an
// equivalent producer.
package feed
