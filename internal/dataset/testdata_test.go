package dataset

const sampleCSV = `user_id,Physics Chapters,Questions from that Physics Chapter,Marks in Physics,Chemistry Chapters,Questions from that Chemistry Chapter,Marks in Chemistry,Mathematics Chapters,Questions from that Mathematics Chapter,Marks in Mathematics,Strength in Physics,Strength in Chemistry,Strength in Mathematics
s1,Kinematics,Projectile Motion,4,Atomic Structure,Bohr's Model,0,Probability,Bayes' Theorem,4,yes,no,yes
s2,Kinematics,Relative Velocity,NaN,Thermodynamics,Entropy,4,Quadratic Equations,Roots of Quadratic,2,no,yes,no
s1,Laws of Motion,Friction,4,Thermodynamics,Enthalpy,,Probability,Conditional Probability,0,yes,no,yes
s3,Laws of Motion,Newton's Third Law,2,Atomic Structure,Quantum Numbers,4,Probability,Bayes' Theorem,4,no,yes,yes
`
