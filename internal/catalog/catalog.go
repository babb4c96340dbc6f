package catalog

// Catalog is the full nested accumulation of observation metadata built
// before any ingestion side effects occur.
type Catalog struct {
	Collections *Dict[*Collection]
}

// Collection groups the observations ingested under one repository
// collection.
type Collection struct {
	Name         string
	Observations *Dict[*Observation]
}

// Observation holds one observation's planes plus its composite-membership
// URIs.
type Observation struct {
	ID        string
	MemberSet Set
	Planes    *Dict[*Plane]
}

// Plane is the unit of ingestion: one data product within one observation.
//
// PlaneDict keys are last-write-wins across contributing files, keeping
// their first position. URIDict records each artifact URI's local path
// ("" when the bytes live only in the store) and is first-write-wins: the
// first file to declare a URI fixes whether it is local.
type Plane struct {
	ID        string
	PlaneDict *Dict[string]
	URIDict   *Dict[string]
	InputSet  Set
	FileSet   Set
	Artifacts *Dict[*Artifact]
}

// Artifact carries the per-URI override keys plus a Custom dict for
// archive-specific in-memory extension. Custom never serializes.
type Artifact struct {
	URI       string
	Overrides *Dict[string]
	Custom    *Dict[string]
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Collections: NewDict[*Collection]()}
}

func newCollection(name string) *Collection {
	return &Collection{
		Name:         name,
		Observations: NewDict[*Observation](),
	}
}

func newObservation(id string) *Observation {
	return &Observation{
		ID:        id,
		MemberSet: NewSet(),
		Planes:    NewDict[*Plane](),
	}
}

func newPlane(id string) *Plane {
	return &Plane{
		ID:        id,
		PlaneDict: NewDict[string](),
		URIDict:   NewDict[string](),
		InputSet:  NewSet(),
		FileSet:   NewSet(),
		Artifacts: NewDict[*Artifact](),
	}
}

func newArtifact(uri string) *Artifact {
	return &Artifact{
		URI:       uri,
		Overrides: NewDict[string](),
		Custom:    NewDict[string](),
	}
}

// Merge folds one file's record into the catalog, applying the merge rules:
// plane keys and artifact override keys are last-write-wins in place,
// URIDict is first-write-wins, member/input/file sets are pure unions.
// Invalid records are rejected; choosing whether that is fatal is the
// caller's concern.
func (c *Catalog) Merge(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	col := c.ensureCollection(rec.Collection)
	obs := col.ensureObservation(rec.ObservationID)
	obs.MemberSet.Add(rec.MemberURIs...)

	plane := obs.ensurePlane(rec.ProductID)
	for _, key := range rec.PlaneDict.Keys() {
		value, _ := rec.PlaneDict.Get(key)
		plane.PlaneDict.Set(key, value)
	}
	if _, ok := plane.URIDict.Get(rec.URI); !ok {
		plane.URIDict.Set(rec.URI, rec.LocalPath)
	}
	plane.InputSet.Add(rec.InputURIs...)
	plane.FileSet.Add(rec.FileIDs...)

	for _, uri := range rec.Artifacts.Keys() {
		src, _ := rec.Artifacts.Get(uri)
		dst := plane.ensureArtifact(uri)
		for _, key := range src.Overrides.Keys() {
			value, _ := src.Overrides.Get(key)
			dst.Overrides.Set(key, value)
		}
		for _, key := range src.Custom.Keys() {
			value, _ := src.Custom.Get(key)
			dst.Custom.Set(key, value)
		}
	}
	return nil
}

// Empty reports whether the catalog holds no collections.
func (c *Catalog) Empty() bool {
	return c.Collections.Len() == 0
}

func (c *Catalog) ensureCollection(name string) *Collection {
	if col, ok := c.Collections.Get(name); ok {
		return col
	}
	col := newCollection(name)
	c.Collections.Set(name, col)
	return col
}

func (col *Collection) ensureObservation(id string) *Observation {
	if obs, ok := col.Observations.Get(id); ok {
		return obs
	}
	obs := newObservation(id)
	col.Observations.Set(id, obs)
	return obs
}

func (obs *Observation) ensurePlane(id string) *Plane {
	if plane, ok := obs.Planes.Get(id); ok {
		return plane
	}
	plane := newPlane(id)
	obs.Planes.Set(id, plane)
	return plane
}

func (p *Plane) ensureArtifact(uri string) *Artifact {
	if artifact, ok := p.Artifacts.Get(uri); ok {
		return artifact
	}
	artifact := newArtifact(uri)
	p.Artifacts.Set(uri, artifact)
	return artifact
}
